package analysis

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"mcxdesk/internal/models"
)

func sideGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(models.OptionSide{}), map[string]gopter.Gen{
		"LTP":       gen.Float64Range(0, 500),
		"AbsChange": gen.Float64Range(-50, 50),
		"Volume":    gen.Float64Range(0, 10000),
		"OI":        gen.OneGenOf(gen.Const(0.0), gen.Float64Range(0, 50000)),
	}).Map(func(s models.OptionSide) models.OptionSide {
		s.Turnover = s.LTP * s.Volume
		return s
	})
}

func recordGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(models.OptionRecord{}), map[string]gopter.Gen{
		"Strike": gen.Float64Range(1, 10000),
		"Put":    sideGen(),
		"Call":   sideGen(),
	})
}

// Property: for any non-empty chain the ratios are finite and the sentiment
// label agrees with the put/call ratio.
func TestProperty_SummaryRatiosFiniteAndSentimentConsistent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("ratios finite, sentiment matches PCR", prop.ForAll(
		func(records []models.OptionRecord) bool {
			s := Summarize(records, 0, time.Now())
			if s == nil {
				return false
			}
			for _, v := range []float64{s.PutCallRatio, s.VolumeRatio, s.TurnoverRatio} {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return false
				}
			}
			if s.PutCallRatio <= 1 {
				return s.Sentiment == models.SentimentBullish
			}
			return s.Sentiment == models.SentimentBearish
		},
		gen.SliceOfN(12, recordGen()).SuchThat(func(r []models.OptionRecord) bool { return len(r) > 0 }),
	))

	properties.Property("max OI strike belongs to the first record holding the max", prop.ForAll(
		func(records []models.OptionRecord) bool {
			s := Summarize(records, 0, time.Now())
			for _, r := range records {
				if r.Put.OI == s.MaxPEOI {
					return r.Strike == s.MaxPEOIStrike
				}
			}
			return false
		},
		gen.SliceOfN(12, recordGen()).SuchThat(func(r []models.OptionRecord) bool { return len(r) > 0 }),
	))

	properties.TestingRun(t)
}
