package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestExportSettingsDelayJSON(t *testing.T) {
	b, err := json.Marshal(DefaultExportSettings())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"delay":"1s"`) {
		t.Errorf("marshal = %s", b)
	}

	tests := []struct {
		body string
		want time.Duration
	}{
		{`{"delay":"2s"}`, 2 * time.Second},
		{`{"delay":"1500ms"}`, 1500 * time.Millisecond},
		{`{"delay":250}`, 250 * time.Millisecond},
		{`{"delay":null}`, time.Second},
		{`{"recordThreshold":800}`, time.Second},
	}
	for _, tt := range tests {
		s := DefaultExportSettings()
		if err := json.Unmarshal([]byte(tt.body), &s); err != nil {
			t.Fatalf("%s: %v", tt.body, err)
		}
		if s.Delay != tt.want {
			t.Errorf("%s: delay = %v, want %v", tt.body, s.Delay, tt.want)
		}
		if !s.Enabled {
			t.Errorf("%s: enabled was reset", tt.body)
		}
	}

	s := DefaultExportSettings()
	if err := json.Unmarshal([]byte(`{"delay":"soon"}`), &s); err == nil {
		t.Error("bad duration accepted")
	}
}

func TestExportSettingsRoundTrip(t *testing.T) {
	in := ExportSettings{Enabled: false, RecordThreshold: 42, Delay: 3 * time.Second}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out ExportSettings
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}
