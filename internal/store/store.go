// Package store persists a session journal: fetched snapshots, raised
// alerts and written exports.
package store

import (
	"context"

	"mcxdesk/internal/models"
)

// Journal is the persistence surface the session and CLI use.
type Journal interface {
	RecordSnapshot(ctx context.Context, snap *models.Snapshot, summary *models.AnalyticsSummary) error
	RecordAlert(ctx context.Context, alert models.PriceAlert) error
	RecordExport(ctx context.Context, rec models.ExportRecord) error

	RecentAlerts(ctx context.Context, limit int) ([]models.PriceAlert, error)
	RecentExports(ctx context.Context, limit int) ([]models.ExportRecord, error)
	SnapshotCount(ctx context.Context, instrument string) (int, error)

	Close() error
}

// SnapshotRow is one journaled snapshot header.
type SnapshotRow struct {
	Instrument   string  `json:"instrument"`
	Expiry       string  `json:"expiry"`
	Underlying   float64 `json:"underlying"`
	RecordCount  int     `json:"recordCount"`
	PutCallRatio float64 `json:"putCallRatio"`
	Sentiment    string  `json:"sentiment"`
}
