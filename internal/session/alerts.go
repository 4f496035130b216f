package session

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"mcxdesk/internal/models"
)

// maxAlerts is the size of the alert ring.
const maxAlerts = 20

// HasChanged reports whether next differs from prev in length or, position
// by position, in strike, put LTP or call LTP.
func HasChanged(prev, next []models.OptionRecord) bool {
	if len(prev) != len(next) {
		return true
	}
	for i := range next {
		if prev[i].Strike != next[i].Strike ||
			prev[i].Put.LTP != next[i].Put.LTP ||
			prev[i].Call.LTP != next[i].Call.LTP {
			return true
		}
	}
	return false
}

// ScanAlerts compares consecutive snapshots position by position and returns
// one alert per side whose LTP moved by at least the threshold percentage.
// Pairs with different strikes, and sides where either price is not
// positive, are skipped. Alerts come back in scan order.
func ScanAlerts(prev, next []models.OptionRecord, instrument string, settings models.AlertSettings, now time.Time) []models.PriceAlert {
	if !settings.Enabled || len(prev) == 0 {
		return nil
	}

	var alerts []models.PriceAlert
	for i, cur := range next {
		if i >= len(prev) {
			break
		}
		old := prev[i]
		if old.Strike != cur.Strike {
			continue
		}
		for _, side := range []models.Side{models.SidePut, models.SideCall} {
			oldLTP := old.Leg(side).LTP
			newLTP := cur.Leg(side).LTP
			if oldLTP <= 0 || newLTP <= 0 {
				continue
			}
			pct := math.Abs((newLTP - oldLTP) / oldLTP * 100)
			if pct < settings.ThresholdPercent {
				continue
			}
			alerts = append(alerts, models.PriceAlert{
				ID:            uuid.NewString(),
				Symbol:        fmt.Sprintf("%s %s", instrument, side),
				Side:          side,
				Strike:        cur.Strike,
				OldPrice:      oldLTP,
				NewPrice:      newLTP,
				ChangePercent: pct,
				Critical:      pct > settings.CriticalPercent,
				Timestamp:     now,
			})
		}
	}
	return alerts
}

// pushAlert prepends a to ring, keeping at most maxAlerts entries.
func pushAlert(ring []models.PriceAlert, a models.PriceAlert) []models.PriceAlert {
	n := len(ring) + 1
	if n > maxAlerts {
		n = maxAlerts
	}
	out := make([]models.PriceAlert, n)
	out[0] = a
	copy(out[1:], ring)
	return out
}
