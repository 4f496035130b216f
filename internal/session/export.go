package session

import (
	"context"
	"fmt"
	"time"

	"mcxdesk/internal/export"
	"mcxdesk/internal/models"
	"mcxdesk/internal/notify"

	apperrors "mcxdesk/internal/errors"
)

// ExportNow writes the first ManualExportRows history rows, or the current
// snapshot when no history has accumulated yet.
func (c *Controller) ExportNow(ctx context.Context) (string, error) {
	c.mu.Lock()
	batch := export.Batch{
		Instrument: c.instrument,
		Expiry:     c.expiry,
		Underlying: c.underlying,
		Records:    c.history.head(c.manualRows),
	}
	if len(batch.Records) == 0 && c.snapshot != nil {
		batch.Records = append([]models.OptionRecord(nil), c.snapshot.Records...)
	}
	c.mu.Unlock()

	if len(batch.Records) == 0 {
		return "", apperrors.ErrNothingToExport
	}
	return c.writeExport(ctx, batch)
}

func (c *Controller) writeExport(ctx context.Context, batch export.Batch) (string, error) {
	path, err := c.exporter.Export(ctx, batch)
	if err != nil {
		c.logger.Error().Err(err).Bool("auto", batch.Auto).Msg("Export failed")
		return "", err
	}

	c.mu.Lock()
	c.lastExportPath = path
	c.mu.Unlock()

	rec := models.ExportRecord{
		Path:       path,
		Instrument: batch.Instrument,
		Expiry:     batch.Expiry,
		Rows:       len(batch.Records),
		Auto:       batch.Auto,
		CreatedAt:  c.now(),
	}
	c.record(func(r Recorder) error { return r.RecordExport(ctx, rec) })
	return path, nil
}

// scheduleExportLocked arms an auto export after delay. c.mu must be held.
func (c *Controller) scheduleExportLocked(delay time.Duration) {
	id := c.nextTimer
	c.nextTimer++
	c.pendingWG.Add(1)
	c.pending[id] = time.AfterFunc(delay, func() {
		defer c.pendingWG.Done()
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		c.runAutoExport()
	})
}

// runAutoExport exports the whole history as it stands when the timer fires.
func (c *Controller) runAutoExport() {
	ctx := context.Background()

	c.mu.Lock()
	batch := export.Batch{
		Instrument: c.instrument,
		Expiry:     c.expiry,
		Underlying: c.underlying,
		Records:    c.history.head(0),
		Auto:       true,
	}
	c.mu.Unlock()

	if len(batch.Records) == 0 {
		return
	}
	if _, err := c.writeExport(ctx, batch); err != nil {
		c.notify(ctx, notify.ErrorNotification("Auto-Download Failed", err))
		return
	}
	c.notify(ctx, notify.InfoNotification("Auto-Download Complete",
		fmt.Sprintf("MCX data automatically exported at %d records", len(batch.Records))))
}
