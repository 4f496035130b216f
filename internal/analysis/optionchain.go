// Package analysis reduces option chain snapshots into summary statistics.
//
// Everything here is a pure function of its inputs and safe to call from any
// goroutine.
package analysis

import (
	"time"

	"mcxdesk/internal/models"
)

// Summarize aggregates records into an AnalyticsSummary. It returns nil for
// an empty input, which callers treat as "no data" rather than an error.
//
// Max open interest ties resolve to the first record in input order.
func Summarize(records []models.OptionRecord, underlying float64, now time.Time) *models.AnalyticsSummary {
	if len(records) == 0 {
		return nil
	}

	s := &models.AnalyticsSummary{
		MaxPEOI:         records[0].Put.OI,
		MaxCEOI:         records[0].Call.OI,
		MaxPEOIStrike:   records[0].Strike,
		MaxCEOIStrike:   records[0].Strike,
		UnderlyingValue: underlying,
		Timestamp:       now,
	}

	var sumPEAbs, sumCEAbs float64
	for _, r := range records {
		s.TotalPEOI += r.Put.OI
		s.TotalCEOI += r.Call.OI
		s.TotalPEVolume += r.Put.Volume
		s.TotalCEVolume += r.Call.Volume
		s.TotalPETurnover += r.Put.Turnover
		s.TotalCETurnover += r.Call.Turnover
		sumPEAbs += r.Put.AbsChange
		sumCEAbs += r.Call.AbsChange

		if r.Put.OI > s.MaxPEOI {
			s.MaxPEOI = r.Put.OI
			s.MaxPEOIStrike = r.Strike
		}
		if r.Call.OI > s.MaxCEOI {
			s.MaxCEOI = r.Call.OI
			s.MaxCEOIStrike = r.Strike
		}
	}

	s.PutCallRatio = Ratio(s.TotalPEOI, s.TotalCEOI)
	s.VolumeRatio = Ratio(s.TotalPEVolume, s.TotalCEVolume)
	s.TurnoverRatio = Ratio(s.TotalPETurnover, s.TotalCETurnover)

	n := float64(len(records))
	s.AvgPEAbsChange = sumPEAbs / n
	s.AvgCEAbsChange = sumCEAbs / n

	s.Sentiment = Sentiment(s.PutCallRatio)
	return s
}

// Ratio divides put by call, returning 0 when the call side is not positive.
func Ratio(put, call float64) float64 {
	if call > 0 {
		return put / call
	}
	return 0
}

// Sentiment classifies a put/call ratio. A ratio of exactly 1 is Bullish.
func Sentiment(pcr float64) string {
	if pcr > 1 {
		return models.SentimentBearish
	}
	return models.SentimentBullish
}
