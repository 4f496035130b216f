package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// AlertSettings controls the price alert scan.
type AlertSettings struct {
	Enabled          bool    `json:"enabled" mapstructure:"enabled"`
	ThresholdPercent float64 `json:"threshold" mapstructure:"threshold_percent"`
	CriticalPercent  float64 `json:"criticalThreshold" mapstructure:"critical_percent"`
	SoundEnabled     bool    `json:"soundEnabled" mapstructure:"sound_enabled"`
}

// DefaultAlertSettings mirrors the dashboard defaults: on, 5%, critical above 10%.
func DefaultAlertSettings() AlertSettings {
	return AlertSettings{
		Enabled:          true,
		ThresholdPercent: 5,
		CriticalPercent:  10,
		SoundEnabled:     true,
	}
}

// ExportSettings controls the history-length auto export.
type ExportSettings struct {
	Enabled         bool          `json:"enabled" mapstructure:"auto_enabled"`
	RecordThreshold int           `json:"recordThreshold" mapstructure:"record_threshold"`
	Delay           time.Duration `json:"delay" mapstructure:"delay"`
}

// DefaultExportSettings returns auto export at 500 rows after a 1s settle delay.
func DefaultExportSettings() ExportSettings {
	return ExportSettings{
		Enabled:         true,
		RecordThreshold: 500,
		Delay:           time.Second,
	}
}

// MarshalJSON writes the delay as a duration string such as "1s".
func (s ExportSettings) MarshalJSON() ([]byte, error) {
	type plain ExportSettings
	return json.Marshal(struct {
		plain
		Delay string `json:"delay"`
	}{plain(s), s.Delay.String()})
}

// UnmarshalJSON decodes over the receiver, so absent fields keep their
// current values. The delay is a duration string ("1500ms", "2s") or a bare
// number of milliseconds.
func (s *ExportSettings) UnmarshalJSON(b []byte) error {
	type plain ExportSettings
	aux := struct {
		*plain
		Delay json.RawMessage `json:"delay"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	raw := bytes.TrimSpace(aux.Delay)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return err
		}
		d, err := time.ParseDuration(str)
		if err != nil {
			return fmt.Errorf("delay: %w", err)
		}
		s.Delay = d
		return nil
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return fmt.Errorf("delay: %w", err)
	}
	s.Delay = time.Duration(ms * float64(time.Millisecond))
	return nil
}
