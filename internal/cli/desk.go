package cli

import (
	"errors"

	"mcxdesk/internal/export"
	"mcxdesk/internal/notify"
	"mcxdesk/internal/session"
	"mcxdesk/internal/store"
)

// desk bundles a session controller with the notifiers and recorders it
// was built with so they can be closed together.
type desk struct {
	ctrl     *session.Controller
	notifier *notify.MultiNotifier
	journal  *store.SQLiteStore
}

// buildDesk wires a controller from the config. Extra channels receive
// every notification; those that also implement session.Recorder receive
// snapshots, alerts and exports.
func (app *App) buildDesk(src session.Source, channels ...notify.NotificationChannel) (*desk, error) {
	cfg := app.Config

	mn, err := notify.NewMultiNotifier(&cfg.Notifications, app.Logger)
	if err != nil {
		return nil, err
	}

	var recorders session.Recorders
	for _, ch := range channels {
		mn.AddChannel(ch)
		if r, ok := ch.(session.Recorder); ok {
			recorders = append(recorders, r)
		}
	}

	d := &desk{notifier: mn}
	if cfg.Store.Enabled {
		journal, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			mn.Close()
			return nil, err
		}
		d.journal = journal
		recorders = append(recorders, journal)
	}

	opts := session.Options{
		Source:              src,
		Exporter:            export.NewCSVExporter(cfg.Export.Dir, app.Logger),
		Notifier:            mn,
		Catalog:             app.Catalog,
		Logger:              app.Logger,
		Instrument:          cfg.Session.Instrument,
		Expiry:              cfg.Session.Expiry,
		LiveInterval:        cfg.Session.LiveInterval,
		AutoRefreshInterval: cfg.Session.AutoRefreshInterval,
		HistoryCapacity:     cfg.Session.HistoryCapacity,
		ManualExportRows:    cfg.Export.ManualMaxRows,
		Alerts:              &cfg.Alerts,
		Export:              &cfg.Export.Auto,
	}
	if len(recorders) > 0 {
		opts.Recorder = recorders
	}

	d.ctrl = session.New(opts)
	app.Logger.Debug().Strs("channels", mn.Channels()).Bool("journal", d.journal != nil).Msg("Session desk ready")
	return d, nil
}

// Close stops the controller, flushing pending exports, then releases the
// notifiers and the journal.
func (d *desk) Close() error {
	errs := []error{d.ctrl.Close(), d.notifier.Close()}
	if d.journal != nil {
		errs = append(errs, d.journal.Close())
	}
	return errors.Join(errs...)
}
