// Package cli provides the command-line interface for mcxdesk.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mcxdesk/internal/catalog"
	"mcxdesk/internal/config"
	"mcxdesk/internal/logging"
)

// Version information
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

// App holds the dependencies shared by every command. It is filled in by
// the root command's PersistentPreRunE.
type App struct {
	Config    *config.Config
	ConfigDir string
	Logger    zerolog.Logger
	Catalog   *catalog.Catalog
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "mcxdesk",
		Short: "MCX option chain desk",
		Long: `mcxdesk watches MCX commodity option chains.

It proxies the exchange's option chain endpoint, polls it on a live or
auto-refresh timer, raises alerts on sharp premium moves, summarises
open interest and turnover, and exports the collected history as CSV.

Use 'mcxdesk serve' to run the proxy, session API and event stream, or
'mcxdesk watch' for a terminal session.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/mcxdesk)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newCatalogCmd(app))
	rootCmd.AddCommand(newFetchCmd(app))
	rootCmd.AddCommand(newExportCmd(app))
	rootCmd.AddCommand(newProxyCmd(app))
	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newWatchCmd(app))
	rootCmd.AddCommand(newJournalCmd(app))

	return rootCmd
}

func (app *App) init(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("config")
	if dir == "" {
		dir = config.DefaultConfigDir()
	}
	app.ConfigDir = dir

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	app.Config = cfg

	app.Logger = logging.NewLoggerWithConfig(cfg.Log)
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logging.SetDebugLevel()
		app.Logger = app.Logger.Level(zerolog.DebugLevel)
	}

	cat, err := catalog.Load(cfg.Session.CatalogFile)
	if err != nil {
		return err
	}
	app.Catalog = cat
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Version needs no config.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("mcxdesk v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate the mcxdesk configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": app.ConfigDir})
			} else {
				output.Println(app.ConfigDir)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Upstream")
	output.Printf("  URL:              %s\n", cfg.Upstream.URL)
	output.Printf("  Timeout:          %s\n", cfg.Upstream.Timeout)
	output.Println()

	output.Bold("Proxy")
	output.Printf("  Listen:           %s\n", cfg.Proxy.Addr)
	output.Printf("  Fetch URL:        %s\n", cfg.Proxy.URL)
	output.Println()

	output.Bold("Session")
	output.Printf("  Selection:        %s %s\n", cfg.Session.Instrument, cfg.Session.Expiry)
	output.Printf("  Live interval:    %s\n", cfg.Session.LiveInterval)
	output.Printf("  Auto refresh:     %s\n", cfg.Session.AutoRefreshInterval)
	output.Printf("  History capacity: %d\n", cfg.Session.HistoryCapacity)
	output.Println()

	output.Bold("Alerts")
	output.Printf("  Enabled:          %v\n", cfg.Alerts.Enabled)
	output.Printf("  Threshold:        %.1f%%\n", cfg.Alerts.ThresholdPercent)
	output.Printf("  Critical above:   %.1f%%\n", cfg.Alerts.CriticalPercent)
	output.Printf("  Sound:            %v\n", cfg.Alerts.SoundEnabled)
	output.Println()

	output.Bold("Export")
	output.Printf("  Directory:        %s\n", cfg.Export.Dir)
	output.Printf("  Auto export:      %v at %d rows\n", cfg.Export.Auto.Enabled, cfg.Export.Auto.RecordThreshold)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Level:            %s\n", cfg.Notifications.Level)
	output.Printf("  Terminal:         %v\n", cfg.Notifications.Terminal)
	output.Printf("  Webhook:          %v\n", cfg.Notifications.Webhook.Enabled)
	output.Printf("  Redis:            %v\n", cfg.Notifications.Redis.Enabled)
	output.Printf("  Journal:          %v (%s)\n", cfg.Store.Enabled, cfg.Store.Path)
}

func newCatalogCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List selectable instruments and expiries",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Catalog)
			}
			output.Bold("Instruments")
			for _, inst := range app.Catalog.Instruments {
				output.Printf("  %s\n", inst)
			}
			output.Bold("Expiries")
			for _, exp := range app.Catalog.Expiries {
				output.Printf("  %s\n", exp)
			}
			return nil
		},
	}
}

// selection resolves --instrument/--expiry flags against the config
// defaults and the catalog.
func (app *App) selection(cmd *cobra.Command) (string, string, error) {
	instrument, _ := cmd.Flags().GetString("instrument")
	expiry, _ := cmd.Flags().GetString("expiry")
	if instrument == "" {
		instrument = app.Config.Session.Instrument
	}
	if expiry == "" {
		expiry = app.Config.Session.Expiry
	}
	if err := app.Catalog.Validate(instrument, expiry); err != nil {
		return "", "", fmt.Errorf("invalid selection: %w", err)
	}
	return instrument, expiry, nil
}

func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("instrument", "i", "", "commodity code (default from config)")
	cmd.Flags().StringP("expiry", "e", "", "expiry code (default from config)")
}
