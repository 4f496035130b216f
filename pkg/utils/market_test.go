package utils

import (
	"testing"
	"time"
)

func TestMCXSessionStatus(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"weekday morning", time.Date(2025, 7, 16, 10, 0, 0, 0, IndiaLocation), SessionOpen},
		{"weekday late evening", time.Date(2025, 7, 16, 23, 15, 0, 0, IndiaLocation), SessionOpen},
		{"after close", time.Date(2025, 7, 16, 23, 30, 0, 0, IndiaLocation), SessionClosed},
		{"before open", time.Date(2025, 7, 16, 8, 59, 0, 0, IndiaLocation), SessionClosed},
		{"saturday", time.Date(2025, 7, 19, 12, 0, 0, 0, IndiaLocation), SessionClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MCXSessionStatus(tt.at); got != tt.want {
				t.Errorf("MCXSessionStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}
