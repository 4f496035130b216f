package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"mcxdesk/internal/notify"
	"mcxdesk/internal/session"
	"mcxdesk/pkg/utils"

	apperrors "mcxdesk/internal/errors"
)

const watchHelp = "keys: [l]ive  [a]uto-refresh  [f]etch  [e]xport  [c]lear alerts  [s]tatus  [q]uit"

func newWatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run an interactive terminal session",
		Long: `Watch an option chain from the terminal. Notifications and alerts are
printed as they arrive; type a key and press Enter to act.

  ` + watchHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			instrument, expiry, err := app.selection(cmd)
			if err != nil {
				return err
			}
			live, _ := cmd.Flags().GetBool("live")
			auto, _ := cmd.Flags().GetBool("auto-refresh")

			output := NewOutput(cmd)
			term := notify.NewTerminalNotifier(cmd.ErrOrStderr(), 100)
			term.SetEnabled(app.Config.Notifications.Terminal)
			term.SetBellEnabled(app.Config.Alerts.SoundEnabled)
			term.Start(ctx)

			d, err := app.buildDesk(app.source(cmd), term)
			if err != nil {
				return err
			}
			defer func() {
				if err := d.Close(); err != nil {
					app.Logger.Warn().Err(err).Msg("Closing session")
				}
			}()

			if err := d.ctrl.SelectInstrument(instrument, expiry); err != nil {
				return err
			}

			w := &watcher{ctrl: d.ctrl, out: output, overlay: term.Overlay()}
			if _, err := d.ctrl.FetchNow(ctx); err == nil {
				w.status()
			}
			if live {
				d.ctrl.StartLive(ctx)
			}
			if auto {
				d.ctrl.StartAutoRefresh(ctx)
			}

			output.Dim(watchHelp)
			return w.run(ctx, cmd.InOrStdin())
		},
	}
	addSelectionFlags(cmd)
	addSourceFlags(cmd)
	cmd.Flags().Bool("live", false, "start live mode immediately")
	cmd.Flags().Bool("auto-refresh", false, "start auto refresh immediately")
	return cmd
}

// watcher maps single-key commands onto the session controller.
type watcher struct {
	ctrl    *session.Controller
	out     *Output
	overlay *notify.NotificationOverlay
}

// run reads commands until q, EOF or ctx is done.
func (w *watcher) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := w.handle(ctx, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

// handle executes one command and reports whether the session should end.
func (w *watcher) handle(ctx context.Context, key string) bool {
	switch strings.ToLower(key) {
	case "":
		return false
	case "q":
		return true
	case "l":
		if w.ctrl.ToggleLive(ctx) {
			w.out.Success("Live mode on")
		} else {
			w.out.Info("Live mode off")
		}
	case "a":
		if w.ctrl.ToggleAutoRefresh(ctx) {
			w.out.Success("Auto refresh on (next in %s)", utils.FormatCountdown(w.ctrl.Countdown()))
		} else {
			w.out.Info("Auto refresh off")
		}
	case "f":
		res, err := w.ctrl.FetchNow(ctx)
		switch {
		case errors.Is(err, apperrors.ErrCycleInProgress):
			w.out.Warning("A fetch is already running")
		case err != nil:
			// The terminal notifier has already shown the failure.
		case !res.Changed:
			w.out.Dim("No change since last fetch")
		default:
			w.status()
		}
	case "e":
		path, err := w.ctrl.ExportNow(ctx)
		if err != nil {
			w.out.Error("Export failed: %v", err)
		} else {
			w.out.Success("✓ Exported to %s", path)
		}
	case "c":
		w.ctrl.ClearAlerts()
		w.overlay.Clear()
		w.out.Info("Alerts cleared")
	case "s":
		w.status()
	default:
		w.out.Dim(watchHelp)
	}
	return false
}

// status prints the chain, analytics card, alert ring and session line.
func (w *watcher) status() {
	if snap := w.ctrl.Snapshot(); snap != nil {
		renderChain(w.out, snap)
		w.out.Println()
	}
	renderAnalytics(w.out, w.ctrl.Analytics())

	w.out.Bold("Alerts")
	renderAlerts(w.out, w.ctrl.Alerts())
	if overlay := w.overlay.Render(); overlay != "" {
		w.out.Printf("%s", overlay)
	}

	st := w.ctrl.State()
	mode := func(on bool) string {
		if on {
			return w.out.Green("on")
		}
		return "off"
	}
	w.out.Printf("%s %s  market %s  live %s  auto %s (%s)  history %d  last fetch %s\n",
		st.Instrument, st.Expiry, w.out.MarketStatus(st.MarketSession),
		mode(st.LiveRunning), mode(st.AutoRefreshRunning), st.CountdownText,
		st.HistoryLen, st.LastFetch.Format("15:04:05"))
}
