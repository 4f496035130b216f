package session

import (
	"context"
	"time"

	"mcxdesk/internal/analysis"
	"mcxdesk/internal/logging"
	"mcxdesk/internal/models"
	"mcxdesk/internal/notify"

	apperrors "mcxdesk/internal/errors"
)

// CycleResult describes one fetch-compare-update cycle.
type CycleResult struct {
	Trigger         Trigger             `json:"trigger"`
	Changed         bool                `json:"changed"`
	Stale           bool                `json:"stale,omitempty"`
	Records         int                 `json:"records"`
	HistoryLen      int                 `json:"historyLength"`
	Alerts          []models.PriceAlert `json:"alerts,omitempty"`
	ExportScheduled bool                `json:"exportScheduled"`
	Duration        time.Duration       `json:"duration"`
}

// FetchNow runs a manual cycle.
func (c *Controller) FetchNow(ctx context.Context) (CycleResult, error) {
	return c.RunCycle(ctx, TriggerManual)
}

// RunCycle fetches the selected chain and, when it differs from the current
// snapshot, scans for alerts, replaces the snapshot, recomputes analytics,
// appends to history and checks the auto export trigger. Unchanged data
// leaves every piece of state as it was. A fetch error raises an error
// notification and also leaves state untouched.
func (c *Controller) RunCycle(ctx context.Context, trigger Trigger) (CycleResult, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return CycleResult{Trigger: trigger}, apperrors.ErrCycleInProgress
	}
	defer c.inFlight.Store(false)

	start := c.now()
	c.mu.Lock()
	instrument, expiry := c.instrument, c.expiry
	alertSettings := c.alertSettings
	exportSettings := c.exportSettings
	c.mu.Unlock()

	logger := logging.WithInstrument(c.logger, instrument, expiry)
	res := CycleResult{Trigger: trigger}

	snap, err := c.source.FetchSnapshot(ctx, instrument, expiry)
	if err != nil {
		c.mu.Lock()
		c.cycles++
		c.failures++
		c.lastErr = err.Error()
		c.mu.Unlock()

		logger.Error().Err(err).Str("trigger", string(trigger)).Msg("Option chain fetch failed")
		c.notify(ctx, notify.ErrorNotification("Failed to fetch option chain data", err))
		return res, err
	}

	now := c.now()
	c.mu.Lock()
	c.cycles++
	c.lastFetch = now
	c.lastErr = ""

	if c.instrument != instrument || c.expiry != expiry {
		c.mu.Unlock()
		res.Stale = true
		logger.Debug().Msg("Discarding result for previous selection")
		return res, nil
	}

	var prev []models.OptionRecord
	if c.snapshot != nil {
		prev = c.snapshot.Records
	}
	if c.snapshot != nil && !HasChanged(prev, snap.Records) {
		res.Records = c.snapshot.Len()
		res.HistoryLen = c.history.len()
		c.mu.Unlock()
		res.Duration = c.now().Sub(start)
		logging.LogCycle(logger, string(trigger), false, res.Records, res.HistoryLen, 0, res.Duration)
		return res, nil
	}

	alerts := ScanAlerts(prev, snap.Records, instrument, alertSettings, now)
	for _, a := range alerts {
		c.alerts = pushAlert(c.alerts, a)
	}

	// A zero underlying keeps the last known value.
	if snap.UnderlyingValue == 0 {
		fixed := *snap
		fixed.UnderlyingValue = c.underlying
		snap = &fixed
	} else {
		c.underlying = snap.UnderlyingValue
	}

	c.snapshot = snap
	c.analytics = analysis.Summarize(snap.Records, snap.UnderlyingValue, now)
	c.history.append(snap.Records)
	c.changes++

	total := c.history.total
	if !c.closed && exportSettings.Enabled &&
		total >= exportSettings.RecordThreshold && total > c.lastExportLen {
		c.lastExportLen = total
		c.scheduleExportLocked(exportSettings.Delay)
		res.ExportScheduled = true
	}

	summary := *c.analytics
	res.Changed = true
	res.Records = snap.Len()
	res.HistoryLen = c.history.len()
	res.Alerts = alerts
	c.mu.Unlock()

	for _, a := range alerts {
		logging.LogAlert(logger, a.Symbol, a.Strike, a.OldPrice, a.NewPrice, a.ChangePercent, a.Critical)
		c.notify(ctx, notify.AlertNotification(a, alertSettings.SoundEnabled))
		alert := a
		c.record(func(r Recorder) error { return r.RecordAlert(ctx, alert) })
	}
	c.record(func(r Recorder) error { return r.RecordSnapshot(ctx, snap, &summary) })

	res.Duration = c.now().Sub(start)
	logging.LogCycle(logger, string(trigger), true, res.Records, res.HistoryLen, len(alerts), res.Duration)
	return res, nil
}
