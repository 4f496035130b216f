// Package session owns the state of one option chain watching session: the
// current snapshot, accumulated history, alert ring, settings and the live
// and auto-refresh timers that drive fetch cycles.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"mcxdesk/internal/export"
	"mcxdesk/internal/logging"
	"mcxdesk/internal/models"
	"mcxdesk/internal/notify"
	"mcxdesk/pkg/utils"

	apperrors "mcxdesk/internal/errors"
)

// Source produces snapshots. fetcher.Fetcher is the production Source.
type Source interface {
	FetchSnapshot(ctx context.Context, instrument, expiry string) (*models.Snapshot, error)
}

// Exporter writes a batch of rows somewhere and returns its location.
type Exporter interface {
	Export(ctx context.Context, b export.Batch) (string, error)
}

// Recorder observes session events. The SQLite journal and the stream hub
// both implement it.
type Recorder interface {
	RecordSnapshot(ctx context.Context, snap *models.Snapshot, summary *models.AnalyticsSummary) error
	RecordAlert(ctx context.Context, alert models.PriceAlert) error
	RecordExport(ctx context.Context, rec models.ExportRecord) error
}

// Validator checks an instrument/expiry selection.
type Validator interface {
	Validate(instrument, expiry string) error
}

// Trigger names what started a cycle.
type Trigger string

const (
	TriggerManual      Trigger = "manual"
	TriggerLive        Trigger = "live"
	TriggerAutoRefresh Trigger = "auto_refresh"
)

// Options configures a Controller. Source and Exporter are required.
type Options struct {
	Source   Source
	Exporter Exporter
	Notifier notify.Notifier
	Recorder Recorder
	Catalog  Validator
	Logger   zerolog.Logger

	Instrument string
	Expiry     string

	LiveInterval        time.Duration
	AutoRefreshInterval time.Duration
	CountdownTick       time.Duration

	// HistoryCapacity caps retained history rows; 0 keeps everything.
	HistoryCapacity int
	// ManualExportRows caps rows written by ExportNow.
	ManualExportRows int

	// Nil settings take the defaults; a non-nil value is used as given, so
	// a caller can start with alerts or auto export switched off.
	Alerts *models.AlertSettings
	Export *models.ExportSettings

	Now func() time.Time
}

// State is a point-in-time copy of the session for display.
type State struct {
	Instrument         string                `json:"instrument"`
	Expiry             string                `json:"expiry"`
	LiveRunning        bool                  `json:"liveRunning"`
	AutoRefreshRunning bool                  `json:"autoRefreshRunning"`
	Countdown          int                   `json:"countdown"`
	CountdownText      string                `json:"countdownText"`
	LastRefresh        time.Time             `json:"lastRefresh"`
	LastFetch          time.Time             `json:"lastFetch"`
	UnderlyingValue    float64               `json:"underlyingValue"`
	Records            int                   `json:"records"`
	HistoryLen         int                   `json:"historyLength"`
	TotalAppended      int                   `json:"totalAppended"`
	LastExportLen      int                   `json:"lastExportLength"`
	AlertCount         int                   `json:"alertCount"`
	Cycles             int                   `json:"cycles"`
	Changes            int                   `json:"changes"`
	Failures           int                   `json:"failures"`
	LastError          string                `json:"lastError,omitempty"`
	LastExportPath     string                `json:"lastExportPath,omitempty"`
	MarketSession      string                `json:"marketSession"`
	AlertSettings      models.AlertSettings  `json:"alertSettings"`
	ExportSettings     models.ExportSettings `json:"exportSettings"`
}

// Controller runs fetch-compare-update cycles and owns all session state.
// Only one cycle runs at a time; a cycle that starts while another is in
// flight fails fast with ErrCycleInProgress.
type Controller struct {
	source   Source
	exporter Exporter
	notifier notify.Notifier
	recorder Recorder
	catalog  Validator
	logger   zerolog.Logger
	now      func() time.Time

	liveInterval  time.Duration
	autoInterval  time.Duration
	countdownTick time.Duration
	manualRows    int

	inFlight atomic.Bool

	mu             sync.Mutex
	instrument     string
	expiry         string
	snapshot       *models.Snapshot
	underlying     float64
	analytics      *models.AnalyticsSummary
	history        *history
	alerts         []models.PriceAlert
	alertSettings  models.AlertSettings
	exportSettings models.ExportSettings
	lastExportLen  int
	lastExportPath string
	liveStop       chan struct{}
	autoStop       chan struct{}
	countdown      int
	lastRefresh    time.Time
	lastFetch      time.Time
	cycles         int
	changes        int
	failures       int
	lastErr        string
	closed         bool

	pending   map[int]*time.Timer
	nextTimer int
	pendingWG sync.WaitGroup
	loops     sync.WaitGroup
}

// New creates a Controller.
func New(opts Options) *Controller {
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LiveInterval <= 0 {
		opts.LiveInterval = 10 * time.Second
	}
	if opts.AutoRefreshInterval <= 0 {
		opts.AutoRefreshInterval = 5 * time.Minute
	}
	if opts.CountdownTick <= 0 {
		opts.CountdownTick = time.Second
	}
	if opts.ManualExportRows <= 0 {
		opts.ManualExportRows = 1000
	}
	alertSettings := models.DefaultAlertSettings()
	if opts.Alerts != nil {
		alertSettings = *opts.Alerts
	}
	exportSettings := models.DefaultExportSettings()
	if opts.Export != nil {
		exportSettings = *opts.Export
	}

	c := &Controller{
		source:         opts.Source,
		exporter:       opts.Exporter,
		notifier:       opts.Notifier,
		recorder:       opts.Recorder,
		catalog:        opts.Catalog,
		logger:         logging.WithComponent(opts.Logger, "session"),
		now:            opts.Now,
		liveInterval:   opts.LiveInterval,
		autoInterval:   opts.AutoRefreshInterval,
		countdownTick:  opts.CountdownTick,
		manualRows:     opts.ManualExportRows,
		instrument:     opts.Instrument,
		expiry:         opts.Expiry,
		history:        newHistory(opts.HistoryCapacity),
		alertSettings:  alertSettings,
		exportSettings: exportSettings,
		pending:        make(map[int]*time.Timer),
	}
	c.countdown = c.fullCountdown()
	return c
}

func (c *Controller) fullCountdown() int {
	secs := int(c.autoInterval / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Selection returns the selected instrument and expiry.
func (c *Controller) Selection() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instrument, c.expiry
}

// SelectInstrument switches the session to another instrument/expiry. The
// current snapshot is cleared so the next fetch never compares prices across
// contracts; history and alerts are kept.
func (c *Controller) SelectInstrument(instrument, expiry string) error {
	if c.catalog != nil {
		if err := c.catalog.Validate(instrument, expiry); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if instrument == c.instrument && expiry == c.expiry {
		return nil
	}
	c.instrument = instrument
	c.expiry = expiry
	c.snapshot = nil
	c.analytics = nil

	c.logger.Info().Str("instrument", instrument).Str("expiry", expiry).Msg("Selection changed")
	return nil
}

// Snapshot returns the current snapshot, or nil before the first fetch.
func (c *Controller) Snapshot() *models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Analytics returns the summary of the current snapshot, or nil.
func (c *Controller) Analytics() *models.AnalyticsSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.analytics == nil {
		return nil
	}
	s := *c.analytics
	return &s
}

// History returns a copy of the retained history rows, oldest first.
func (c *Controller) History() []models.OptionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.head(0)
}

// Alerts returns the alert ring, newest first.
func (c *Controller) Alerts() []models.PriceAlert {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.PriceAlert, len(c.alerts))
	copy(out, c.alerts)
	return out
}

// ClearAlerts empties the alert ring.
func (c *Controller) ClearAlerts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = nil
}

// AlertSettings returns the alert settings.
func (c *Controller) AlertSettings() models.AlertSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alertSettings
}

// SetAlertSettings replaces the alert settings. Cycles already in flight
// keep the settings they started with.
func (c *Controller) SetAlertSettings(s models.AlertSettings) error {
	if s.ThresholdPercent <= 0 {
		return apperrors.NewValidationError("threshold", s.ThresholdPercent, "must be positive")
	}
	if s.CriticalPercent < s.ThresholdPercent {
		return apperrors.NewValidationError("criticalThreshold", s.CriticalPercent, "must not be below threshold")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alertSettings = s
	return nil
}

// ExportSettings returns the auto export settings.
func (c *Controller) ExportSettings() models.ExportSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exportSettings
}

// SetExportSettings replaces the auto export settings. The length at which
// the last export fired is kept.
func (c *Controller) SetExportSettings(s models.ExportSettings) error {
	if s.RecordThreshold <= 0 {
		return apperrors.NewValidationError("recordThreshold", s.RecordThreshold, "must be positive")
	}
	if s.Delay < 0 {
		return apperrors.NewValidationError("delay", s.Delay, "must not be negative")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exportSettings = s
	return nil
}

// Countdown returns the seconds until the next auto refresh.
func (c *Controller) Countdown() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countdown
}

// State returns a copy of the session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		Instrument:         c.instrument,
		Expiry:             c.expiry,
		LiveRunning:        c.liveStop != nil,
		AutoRefreshRunning: c.autoStop != nil,
		Countdown:          c.countdown,
		CountdownText:      utils.FormatCountdown(c.countdown),
		LastRefresh:        c.lastRefresh,
		LastFetch:          c.lastFetch,
		UnderlyingValue:    c.underlying,
		Records:            c.snapshot.Len(),
		HistoryLen:         c.history.len(),
		TotalAppended:      c.history.total,
		LastExportLen:      c.lastExportLen,
		AlertCount:         len(c.alerts),
		Cycles:             c.cycles,
		Changes:            c.changes,
		Failures:           c.failures,
		LastError:          c.lastErr,
		LastExportPath:     c.lastExportPath,
		MarketSession:      utils.MCXSessionStatus(c.now()),
		AlertSettings:      c.alertSettings,
		ExportSettings:     c.exportSettings,
	}
}

// Close stops both timers, runs any export still waiting on its delay and
// waits for timer goroutines to finish their current cycle.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stopLiveLocked()
	c.stopAutoRefreshLocked()
	pending := c.pending
	c.pending = make(map[int]*time.Timer)
	c.mu.Unlock()

	for _, t := range pending {
		if t.Stop() {
			c.runAutoExport()
			c.pendingWG.Done()
		}
	}
	c.pendingWG.Wait()
	c.loops.Wait()
	return nil
}

func (c *Controller) notify(ctx context.Context, n notify.Notification) {
	if err := c.notifier.Notify(ctx, n); err != nil {
		c.logger.Warn().Err(err).Str("title", n.Title).Msg("Notification failed")
	}
}

func (c *Controller) record(fn func(Recorder) error) {
	if c.recorder == nil {
		return
	}
	if err := fn(c.recorder); err != nil {
		c.logger.Warn().Err(err).Msg("Recorder failed")
	}
}

// Recorders fans session events out to several recorders.
type Recorders []Recorder

// RecordSnapshot implements Recorder.
func (rs Recorders) RecordSnapshot(ctx context.Context, snap *models.Snapshot, summary *models.AnalyticsSummary) error {
	var errs []error
	for _, r := range rs {
		errs = append(errs, r.RecordSnapshot(ctx, snap, summary))
	}
	return errors.Join(errs...)
}

// RecordAlert implements Recorder.
func (rs Recorders) RecordAlert(ctx context.Context, alert models.PriceAlert) error {
	var errs []error
	for _, r := range rs {
		errs = append(errs, r.RecordAlert(ctx, alert))
	}
	return errors.Join(errs...)
}

// RecordExport implements Recorder.
func (rs Recorders) RecordExport(ctx context.Context, rec models.ExportRecord) error {
	var errs []error
	for _, r := range rs {
		errs = append(errs, r.RecordExport(ctx, rec))
	}
	return errors.Join(errs...)
}
