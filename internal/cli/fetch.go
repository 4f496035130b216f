package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mcxdesk/internal/analysis"
	"mcxdesk/internal/export"
	"mcxdesk/internal/fetcher"
	"mcxdesk/internal/mcx"
	"mcxdesk/internal/models"
	"mcxdesk/internal/session"
)

// sourceFunc adapts the exchange client to session.Source.
type sourceFunc func(ctx context.Context, instrument, expiry string) (*models.Snapshot, error)

func (f sourceFunc) FetchSnapshot(ctx context.Context, instrument, expiry string) (*models.Snapshot, error) {
	return f(ctx, instrument, expiry)
}

func (app *App) exchangeClient() *mcx.Client {
	up := app.Config.Upstream
	return mcx.NewClient(mcx.ClientConfig{
		URL:       up.URL,
		Timeout:   up.Timeout,
		UserAgent: up.UserAgent,
		Referer:   up.Referer,
		Origin:    up.Origin,
	}, app.Logger)
}

// source returns the proxy fetcher, or the exchange client when --direct is
// set.
func (app *App) source(cmd *cobra.Command) session.Source {
	if direct, _ := cmd.Flags().GetBool("direct"); direct {
		return sourceFunc(app.exchangeClient().GetOptionChain)
	}
	url, _ := cmd.Flags().GetString("proxy-url")
	if url == "" {
		url = app.Config.Proxy.URL
	}
	return fetcher.New(url, app.Config.Proxy.Timeout, app.Logger)
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("proxy-url", "", "option chain proxy URL (default from config)")
	cmd.Flags().Bool("direct", false, "call the exchange directly instead of the proxy")
}

func newFetchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the option chain once",
		Long:  "Fetch the option chain for one instrument and expiry and print the strike table and analytics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			instrument, expiry, err := app.selection(cmd)
			if err != nil {
				return err
			}

			snap, err := app.source(cmd).FetchSnapshot(cmd.Context(), instrument, expiry)
			if err != nil {
				return fmt.Errorf("fetching option chain: %w", err)
			}
			summary := analysis.Summarize(snap.Records, snap.UnderlyingValue, snap.FetchedAt)

			if output.IsJSON() {
				return output.JSON(ChainView{Snapshot: snap, Analytics: summary})
			}
			renderChain(output, snap)
			output.Println()
			renderAnalytics(output, summary)
			return nil
		},
	}
	addSelectionFlags(cmd)
	addSourceFlags(cmd)
	return cmd
}

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch the option chain once and write it as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			instrument, expiry, err := app.selection(cmd)
			if err != nil {
				return err
			}

			snap, err := app.source(cmd).FetchSnapshot(cmd.Context(), instrument, expiry)
			if err != nil {
				return fmt.Errorf("fetching option chain: %w", err)
			}

			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				dir = app.Config.Export.Dir
			}
			exporter := export.NewCSVExporter(dir, app.Logger)
			path, err := exporter.Export(cmd.Context(), export.Batch{
				Instrument: instrument,
				Expiry:     expiry,
				Underlying: snap.UnderlyingValue,
				Records:    snap.Records,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(models.ExportRecord{
					Path:       path,
					Instrument: instrument,
					Expiry:     expiry,
					Rows:       snap.Len(),
					CreatedAt:  snap.FetchedAt,
				})
			}
			output.Success("✓ Exported %d rows to %s", snap.Len(), path)
			return nil
		},
	}
	addSelectionFlags(cmd)
	addSourceFlags(cmd)
	cmd.Flags().String("dir", "", "output directory (default from config)")
	return cmd
}
