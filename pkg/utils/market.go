package utils

import (
	"time"
)

// IndiaLocation is the timezone for Indian markets.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// MCX session status values.
const (
	SessionOpen   = "OPEN"
	SessionClosed = "CLOSED"
)

// MCXSessionStatus reports whether the MCX commodity session is trading at t.
// Weekday sessions run 09:00 to 23:30 IST.
func MCXSessionStatus(t time.Time) string {
	now := t.In(IndiaLocation)

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return SessionClosed
	}

	minutes := now.Hour()*60 + now.Minute()
	if minutes >= 9*60 && minutes < 23*60+30 {
		return SessionOpen
	}
	return SessionClosed
}
