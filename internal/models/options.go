package models

import "time"

// Side identifies the put or call leg of a strike.
type Side string

const (
	SidePut  Side = "PE"
	SideCall Side = "CE"
)

// String returns the exchange code for the side.
func (s Side) String() string {
	return string(s)
}

// Sentiment labels derived from the put/call ratio.
const (
	SentimentBullish = "Bullish"
	SentimentBearish = "Bearish"
)

// OptionSide holds the market data for one leg of a strike.
// All fields are fully populated; missing upstream values arrive as 0.
type OptionSide struct {
	LTP       float64 `json:"ltp"`
	AbsChange float64 `json:"absChange"`
	PctChange float64 `json:"pctChange"`
	Volume    float64 `json:"volume"`
	OI        float64 `json:"oi"`
	OIChange  float64 `json:"oiChange"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Turnover  float64 `json:"turnover"`
}

// OptionRecord is one strike row of an option chain.
type OptionRecord struct {
	Strike float64    `json:"strike"`
	Put    OptionSide `json:"put"`
	Call   OptionSide `json:"call"`
}

// Leg returns the requested side of the record.
func (r OptionRecord) Leg(side Side) OptionSide {
	if side == SidePut {
		return r.Put
	}
	return r.Call
}

// Snapshot is the complete result of one fetch. It is never mutated after
// construction; the next fetch replaces it wholesale.
type Snapshot struct {
	Instrument      string         `json:"instrument"`
	Expiry          string         `json:"expiry"`
	Records         []OptionRecord `json:"records"`
	UnderlyingValue float64        `json:"underlyingValue"`
	FetchedAt       time.Time      `json:"fetchedAt"`
	Source          string         `json:"source"`
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// AnalyticsSummary is the stateless aggregate of a snapshot.
type AnalyticsSummary struct {
	TotalPEOI       float64   `json:"totalPEOI"`
	TotalCEOI       float64   `json:"totalCEOI"`
	TotalPEVolume   float64   `json:"totalPEVolume"`
	TotalCEVolume   float64   `json:"totalCEVolume"`
	TotalPETurnover float64   `json:"totalPETurnover"`
	TotalCETurnover float64   `json:"totalCETurnover"`
	MaxPEOI         float64   `json:"maxPEOI"`
	MaxCEOI         float64   `json:"maxCEOI"`
	MaxPEOIStrike   float64   `json:"maxPEOIStrike"`
	MaxCEOIStrike   float64   `json:"maxCEOIStrike"`
	PutCallRatio    float64   `json:"putCallRatio"`
	VolumeRatio     float64   `json:"volumeRatio"`
	TurnoverRatio   float64   `json:"turnoverRatio"`
	AvgPEAbsChange  float64   `json:"avgPEAbsChange"`
	AvgCEAbsChange  float64   `json:"avgCEAbsChange"`
	Sentiment       string    `json:"marketSentiment"`
	UnderlyingValue float64   `json:"underlyingValue"`
	Timestamp       time.Time `json:"timestamp"`
}
