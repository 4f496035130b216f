package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mcxdesk/internal/api"
	"mcxdesk/internal/stream"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func newProxyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Serve the option chain proxy endpoint",
		Long: `Serve GET /api/option-chain, forwarding each request to the exchange
and returning the chain as flat JSON rows.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = app.Config.Proxy.Addr
			}

			srv := api.NewServer(api.Options{
				Upstream:          app.exchangeClient(),
				Logger:            app.Logger,
				CORSOrigins:       app.Config.Proxy.CORSOrigins,
				DefaultInstrument: app.Config.Session.Instrument,
				DefaultExpiry:     app.Config.Session.Expiry,
			})
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default from config)")
	return cmd
}

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the proxy, session API and event stream",
		Long: `Run the option chain proxy, a session controller polling it, the
session control API under /api/session and the websocket event stream in
one process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = app.Config.Proxy.Addr
			}
			live, _ := cmd.Flags().GetBool("live")
			auto, _ := cmd.Flags().GetBool("auto-refresh")

			hub := stream.NewHub()
			d, err := app.buildDesk(app.source(cmd), hub)
			if err != nil {
				return err
			}
			defer func() {
				if err := d.Close(); err != nil {
					app.Logger.Warn().Err(err).Msg("Closing session")
				}
			}()

			srv := api.NewServer(api.Options{
				Upstream:          app.exchangeClient(),
				Session:           d.ctrl,
				Hub:               hub,
				Logger:            app.Logger,
				CORSOrigins:       app.Config.Proxy.CORSOrigins,
				DefaultInstrument: app.Config.Session.Instrument,
				DefaultExpiry:     app.Config.Session.Expiry,
			})

			g, gctx := errgroup.WithContext(ctx)
			hub.Start(gctx)
			g.Go(func() error {
				return srv.ListenAndServe(gctx, addr)
			})
			g.Go(func() error {
				if live {
					d.ctrl.StartLive(gctx)
				}
				if auto {
					d.ctrl.StartAutoRefresh(gctx)
				}
				<-gctx.Done()
				hub.Stop()
				return nil
			})
			return g.Wait()
		},
	}
	cmd.Flags().String("addr", "", "listen address (default from config)")
	cmd.Flags().Bool("live", false, "start live mode immediately")
	cmd.Flags().Bool("auto-refresh", false, "start auto refresh immediately")
	addSourceFlags(cmd)
	return cmd
}
