package models

import (
	"fmt"
	"time"

	"mcxdesk/pkg/utils"
)

// PriceAlert records a threshold-crossing LTP move on one side of a strike
// between two consecutive snapshots.
type PriceAlert struct {
	ID            string    `json:"id"`
	Symbol        string    `json:"symbol"` // e.g. "CRUDEOIL PE"
	Side          Side      `json:"side"`
	Strike        float64   `json:"strike"`
	OldPrice      float64   `json:"oldPrice"`
	NewPrice      float64   `json:"newPrice"`
	ChangePercent float64   `json:"changePercent"`
	Critical      bool      `json:"critical"`
	Timestamp     time.Time `json:"timestamp"`
}

// Summary renders the alert the way the notification layer shows it.
func (a PriceAlert) Summary() string {
	return fmt.Sprintf("%s %s: ₹%.2f → ₹%.2f (%.2f%%)",
		a.Symbol, utils.FormatStrike(a.Strike), a.OldPrice, a.NewPrice, a.ChangePercent)
}

// ExportRecord describes a CSV file written for the session.
type ExportRecord struct {
	Path       string    `json:"path"`
	Instrument string    `json:"instrument"`
	Expiry     string    `json:"expiry"`
	Rows       int       `json:"rows"`
	Auto       bool      `json:"auto"`
	CreatedAt  time.Time `json:"createdAt"`
}
