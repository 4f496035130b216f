// Package catalog holds the closed set of instruments and expiries the desk
// can select.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "mcxdesk/internal/errors"
)

// Defaults used when no catalog file is present.
var (
	DefaultInstruments = []string{"CRUDEOIL", "GOLD", "SILVER", "COPPER", "ZINC", "LEAD", "NICKEL", "ALUMINIUM"}
	DefaultExpiries    = []string{"17JUL2025", "19AUG2025", "19SEP2025", "21OCT2025", "19NOV2025", "19DEC2025"}
)

const (
	DefaultInstrument = "CRUDEOIL"
	DefaultExpiry     = "17JUL2025"
)

// Catalog is the selectable instrument and expiry set.
type Catalog struct {
	Instruments []string `yaml:"instruments"`
	Expiries    []string `yaml:"expiries"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		Instruments: append([]string(nil), DefaultInstruments...),
		Expiries:    append([]string(nil), DefaultExpiries...),
	}
}

// Load reads a YAML catalog. A missing file yields the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(b)
}

// Parse decodes catalog YAML, normalising codes to upper case and dropping
// blanks and duplicates. Empty sections fall back to the defaults.
func Parse(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	c.Instruments = normalize(c.Instruments)
	c.Expiries = normalize(c.Expiries)
	if len(c.Instruments) == 0 {
		c.Instruments = append([]string(nil), DefaultInstruments...)
	}
	if len(c.Expiries) == 0 {
		c.Expiries = append([]string(nil), DefaultExpiries...)
	}
	return &c, nil
}

func normalize(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		s := strings.ToUpper(strings.TrimSpace(code))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Validate checks that both codes belong to the catalog.
func (c *Catalog) Validate(instrument, expiry string) error {
	if !contains(c.Instruments, instrument) {
		return apperrors.Wrapf(apperrors.ErrUnknownInstrument, "%q", instrument)
	}
	if !contains(c.Expiries, expiry) {
		return apperrors.Wrapf(apperrors.ErrUnknownExpiry, "%q", expiry)
	}
	return nil
}

// Marshal renders the catalog as YAML.
func (c *Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func contains(list []string, code string) bool {
	for _, v := range list {
		if v == code {
			return true
		}
	}
	return false
}
