package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mcxdesk/internal/catalog"
	"mcxdesk/internal/export"
	"mcxdesk/internal/mcx"
	"mcxdesk/internal/models"
	"mcxdesk/internal/notify"
	"mcxdesk/internal/session"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MCXDESK_LOG_FILE", "false")
	t.Setenv("MCXDESK_LOG_CONSOLE", "false")
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func chainServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mcx.ChainResponse{
			Data: []mcx.ChainRow{
				{StrikePrice: 5000, PELTP: 12, PEVolume: 10, PEOI: 1500, CELTP: 90, CEVolume: 4, CEOI: 700},
				{StrikePrice: 5100, PELTP: 45, PEVolume: 3, PEOI: 400, CELTP: 35, CEVolume: 8, CEOI: 2600},
			},
			UnderlyingValue: 5072.5,
			Timestamp:       time.Now(),
			Source:          mcx.SourceLive,
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestVersionCommand(t *testing.T) {
	out, err := runCmd(t, "version", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var v map[string]string
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("version output not JSON: %q", out)
	}
	if v["version"] != Version {
		t.Errorf("version = %q", v["version"])
	}
}

func TestCatalogCommand(t *testing.T) {
	out, err := runCmd(t, "catalog", "--json", "--config", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var cat catalog.Catalog
	if err := json.Unmarshal([]byte(out), &cat); err != nil {
		t.Fatalf("catalog output not JSON: %q", out)
	}
	if len(cat.Instruments) != 8 || len(cat.Expiries) != 6 {
		t.Errorf("catalog = %+v", cat)
	}
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()

	out, err := runCmd(t, "config", "path", "--config", dir)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != dir {
		t.Errorf("config path = %q, want %q", out, dir)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.toml")); err != nil {
		t.Errorf("template not written: %v", err)
	}

	out, err = runCmd(t, "config", "validate", "--config", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Configuration is valid") {
		t.Errorf("validate output %q", out)
	}
}

func TestFetchCommand(t *testing.T) {
	ts := chainServer(t)

	out, err := runCmd(t, "fetch", "--json", "--config", t.TempDir(),
		"--proxy-url", ts.URL+"/api/option-chain", "-i", "GOLD", "-e", "19AUG2025")
	if err != nil {
		t.Fatal(err)
	}
	var view ChainView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("fetch output not JSON: %q", out)
	}
	if view.Snapshot.Len() != 2 || view.Snapshot.Instrument != "GOLD" {
		t.Errorf("snapshot = %+v", view.Snapshot)
	}
	if view.Analytics == nil || view.Analytics.MaxCEOIStrike != 5100 || view.Analytics.Sentiment != models.SentimentBullish {
		t.Errorf("analytics = %+v", view.Analytics)
	}
}

func TestFetchCommandTable(t *testing.T) {
	ts := chainServer(t)

	out, err := runCmd(t, "fetch", "--config", t.TempDir(), "--proxy-url", ts.URL+"/api/option-chain")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"CRUDEOIL 17JUL2025", "Strike", "5100", "1,500", "Option Chain Analytics"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFetchRejectsUnknownInstrument(t *testing.T) {
	_, err := runCmd(t, "fetch", "--config", t.TempDir(), "-i", "PLATINUM")
	if err == nil || !strings.Contains(err.Error(), "invalid selection") {
		t.Errorf("expected selection error, got %v", err)
	}
}

func TestExportCommand(t *testing.T) {
	ts := chainServer(t)
	dir := t.TempDir()

	_, err := runCmd(t, "export", "--config", t.TempDir(),
		"--proxy-url", ts.URL+"/api/option-chain", "--dir", dir)
	if err != nil {
		t.Fatal(err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "MCX_CRUDEOIL_17JUL2025_*.csv"))
	if len(matches) != 1 {
		t.Fatalf("expected one export file, found %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(strings.TrimSpace(string(data)), "\n"); lines != 2 {
		t.Errorf("csv has %d data rows, want 2", lines)
	}
}

type staticSource struct{ snap *models.Snapshot }

func (s staticSource) FetchSnapshot(ctx context.Context, instrument, expiry string) (*models.Snapshot, error) {
	snap := *s.snap
	snap.Instrument, snap.Expiry = instrument, expiry
	return &snap, nil
}

type nopExporter struct{}

func (nopExporter) Export(ctx context.Context, b export.Batch) (string, error) {
	return "/tmp/out.csv", nil
}

func TestWatcherCommands(t *testing.T) {
	ctrl := session.New(session.Options{
		Source: staticSource{snap: &models.Snapshot{
			Records: []models.OptionRecord{
				{Strike: 5000, Put: models.OptionSide{LTP: 10, OI: 100}, Call: models.OptionSide{LTP: 20, OI: 50}},
			},
			UnderlyingValue: 5010,
			FetchedAt:       time.Now(),
		}},
		Exporter:   nopExporter{},
		Logger:     zerolog.Nop(),
		Instrument: "CRUDEOIL",
		Expiry:     "17JUL2025",
	})
	defer ctrl.Close()

	var buf bytes.Buffer
	w := &watcher{
		ctrl:    ctrl,
		out:     &Output{writer: &buf},
		overlay: notify.NewNotificationOverlay(5, time.Minute),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := strings.NewReader("f\nf\ne\nc\ns\nx\nq\nf\n")
	if err := w.run(ctx, in); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{
		"CRUDEOIL 17JUL2025",
		"No change since last fetch",
		"Exported to /tmp/out.csv",
		"Alerts cleared",
		"No alerts",
		watchHelp,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if st := ctrl.State(); st.Cycles != 2 {
		t.Errorf("cycles = %d; commands after q must not run", st.Cycles)
	}
}

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{writer: &buf}
	table := NewTable(out, "Strike", "LTP")
	table.AddRow("5000", "12.50")
	table.AddRow("15000", "1.00")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[2] != "  5000  12.50" || lines[3] != " 15000   1.00" {
		t.Errorf("rows not right-aligned:\n%s", buf.String())
	}
}
