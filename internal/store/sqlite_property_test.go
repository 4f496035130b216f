package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	apperrors "mcxdesk/internal/errors"
	"mcxdesk/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal", "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Property: a saved alert reads back with the same values.
func TestProperty_AlertRoundTrip(t *testing.T) {
	store := newTestStore(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	base := time.Date(2025, 7, 10, 10, 0, 0, 0, time.UTC)
	seq := 0

	properties.Property("alert round-trip", prop.ForAll(
		func(strike, oldPrice, newPrice float64, put, critical bool) bool {
			ctx := context.Background()
			seq++
			side := models.SideCall
			if put {
				side = models.SidePut
			}
			want := models.PriceAlert{
				ID:            fmt.Sprintf("alert-%d", seq),
				Symbol:        "CRUDEOIL " + side.String(),
				Side:          side,
				Strike:        strike,
				OldPrice:      oldPrice,
				NewPrice:      newPrice,
				ChangePercent: (newPrice - oldPrice) / oldPrice * 100,
				Critical:      critical,
				Timestamp:     base.Add(time.Duration(seq) * time.Second),
			}
			if err := store.RecordAlert(ctx, want); err != nil {
				return false
			}

			got, err := store.RecentAlerts(ctx, 1)
			if err != nil || len(got) != 1 {
				return false
			}
			g := got[0]
			return g.ID == want.ID && g.Side == want.Side && g.Strike == want.Strike &&
				g.OldPrice == want.OldPrice && g.NewPrice == want.NewPrice &&
				g.ChangePercent == want.ChangePercent && g.Critical == want.Critical &&
				g.Timestamp.Equal(want.Timestamp)
		},
		gen.Float64Range(1000, 9000),
		gen.Float64Range(1, 500),
		gen.Float64Range(1, 500),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestSnapshotJournal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	for i, inst := range []string{"CRUDEOIL", "CRUDEOIL", "GOLD"} {
		snap := &models.Snapshot{
			Instrument:      inst,
			Expiry:          "17JUL2025",
			Records:         make([]models.OptionRecord, i+1),
			UnderlyingValue: 5690,
			FetchedAt:       now.Add(time.Duration(i) * time.Second),
			Source:          "MCX_LIVE",
		}
		var summary *models.AnalyticsSummary
		if i > 0 {
			summary = &models.AnalyticsSummary{PutCallRatio: 1.2, Sentiment: models.SentimentBearish}
		}
		if err := store.RecordSnapshot(ctx, snap, summary); err != nil {
			t.Fatalf("RecordSnapshot() error = %v", err)
		}
	}

	if n, _ := store.SnapshotCount(ctx, ""); n != 3 {
		t.Errorf("SnapshotCount(all) = %d", n)
	}
	if n, _ := store.SnapshotCount(ctx, "CRUDEOIL"); n != 2 {
		t.Errorf("SnapshotCount(CRUDEOIL) = %d", n)
	}

	latest, err := store.LatestSnapshots(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(latest) != 2 || latest[0].Instrument != "GOLD" || latest[0].RecordCount != 3 {
		t.Errorf("LatestSnapshots() = %+v", latest)
	}
	if latest[1].Sentiment != models.SentimentBearish {
		t.Errorf("sentiment = %q", latest[1].Sentiment)
	}
}

func TestExportJournal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	_ = store.RecordExport(ctx, models.ExportRecord{Path: "/tmp/a.csv", Instrument: "GOLD", Expiry: "19AUG2025", Rows: 10, CreatedAt: now})
	_ = store.RecordExport(ctx, models.ExportRecord{Path: "/tmp/b.csv", Instrument: "GOLD", Expiry: "19AUG2025", Rows: 510, Auto: true, CreatedAt: now.Add(time.Second)})

	got, err := store.RecentExports(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Path != "/tmp/b.csv" || !got[0].Auto || got[0].Rows != 510 {
		t.Errorf("RecentExports() = %+v", got)
	}
}

func TestClosedStore(t *testing.T) {
	store := newTestStore(t)
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	err := store.RecordAlert(context.Background(), models.PriceAlert{ID: "x"})
	if !apperrors.Is(err, apperrors.ErrStoreClosed) {
		t.Errorf("RecordAlert after Close = %v", err)
	}
}
