package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# mcxdesk configuration

[upstream]
# MCX option chain endpoint the proxy forwards to
url = "https://www.mcxindia.com/backpage.aspx/GetOptionChain"
timeout = "15s"

[proxy]
# Listen address for the same-origin proxy and session API
addr = ":8080"
# Option chain endpoint used by the fetcher
url = "http://localhost:8080/api/option-chain"
cors_origins = ["*"]

[session]
instrument = "CRUDEOIL"
expiry = "17JUL2025"
live_interval = "10s"
auto_refresh_interval = "5m"
# Rows kept in memory; 0 keeps everything
history_capacity = 5000

[alerts]
enabled = true
# Percent LTP move between snapshots that raises an alert
threshold_percent = 5.0
# Moves above this escalate to a critical alert
critical_percent = 10.0
sound_enabled = true

[export]
manual_max_rows = 1000
auto_enabled = true
record_threshold = 500
delay = "1s"

[store]
enabled = false

[notifications]
# all, alerts_only, errors_only
level = "all"
terminal = true

[notifications.webhook]
enabled = false
url = ""

[notifications.redis]
enabled = false
url = "redis://localhost:6379/0"
channel = "mcxdesk:alerts"

[log]
level = "info"
console = true
file = true
`

func writeTemplate(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}
