package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mcxdesk/internal/store"
	"mcxdesk/pkg/utils"
)

func newJournalCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the session journal",
		Long:  "Show alerts, exports and snapshots recorded in the SQLite session journal.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "alerts",
		Short: "Show recent price alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			limit, _ := cmd.Flags().GetInt("limit")
			return app.withJournal(func(j *store.SQLiteStore) error {
				alerts, err := j.RecentAlerts(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(alerts)
				}
				table := NewTable(output, "Time", "Symbol", "Strike", "Old", "New", "Change")
				for _, a := range alerts {
					change := utils.FormatPercent(a.ChangePercent)
					if a.Critical {
						change = output.Red(change)
					}
					table.AddRow(
						a.Timestamp.Format("2006-01-02 15:04:05"),
						a.Symbol,
						utils.FormatStrike(a.Strike),
						utils.FormatFixed2(a.OldPrice),
						utils.FormatFixed2(a.NewPrice),
						change,
					)
				}
				table.Render()
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "exports",
		Short: "Show recent CSV exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			limit, _ := cmd.Flags().GetInt("limit")
			return app.withJournal(func(j *store.SQLiteStore) error {
				exports, err := j.RecentExports(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(exports)
				}
				table := NewTable(output, "Time", "Instrument", "Expiry", "Rows", "Auto", "Path")
				for _, e := range exports {
					table.AddRow(
						e.CreatedAt.Format("2006-01-02 15:04:05"),
						e.Instrument,
						e.Expiry,
						fmt.Sprintf("%d", e.Rows),
						fmt.Sprintf("%v", e.Auto),
						e.Path,
					)
				}
				table.Render()
				return nil
			})
		},
	})

	snapshots := &cobra.Command{
		Use:   "snapshots",
		Short: "Show recent snapshot headers",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			limit, _ := cmd.Flags().GetInt("limit")
			instrument, _ := cmd.Flags().GetString("instrument")
			return app.withJournal(func(j *store.SQLiteStore) error {
				count, err := j.SnapshotCount(cmd.Context(), instrument)
				if err != nil {
					return err
				}
				rows, err := j.LatestSnapshots(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(map[string]interface{}{"count": count, "latest": rows})
				}
				output.Bold("%d snapshots journaled", count)
				table := NewTable(output, "Instrument", "Expiry", "Underlying", "Strikes", "PCR", "Sentiment")
				for _, r := range rows {
					table.AddRow(
						r.Instrument,
						r.Expiry,
						utils.FormatFixed2(r.Underlying),
						fmt.Sprintf("%d", r.RecordCount),
						fmt.Sprintf("%.2f", r.PutCallRatio),
						output.Sentiment(r.Sentiment),
					)
				}
				table.Render()
				return nil
			})
		},
	}
	snapshots.Flags().String("instrument", "", "count snapshots for one instrument only")
	cmd.AddCommand(snapshots)

	for _, sub := range cmd.Commands() {
		sub.Flags().Int("limit", 20, "maximum rows to show")
	}
	return cmd
}

// withJournal opens the journal for the duration of fn.
func (app *App) withJournal(fn func(*store.SQLiteStore) error) error {
	j, err := store.NewSQLiteStore(app.Config.Store.Path)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer j.Close()
	return fn(j)
}
