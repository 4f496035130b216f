// Package mcx talks to the MCX India option chain endpoint.
package mcx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	apperrors "mcxdesk/internal/errors"
	"mcxdesk/internal/logging"
	"mcxdesk/internal/models"
)

// DefaultURL is the exchange's option chain page method.
const DefaultURL = "https://www.mcxindia.com/backpage.aspx/GetOptionChain"

const previewLen = 200

// ClientConfig configures the exchange client.
type ClientConfig struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
	Referer   string
	Origin    string
}

// Client posts option chain requests to MCX.
type Client struct {
	cfg    ClientConfig
	client *http.Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewClient creates a new exchange client.
func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logging.WithComponent(logger, "mcx"),
		now:    time.Now,
	}
}

// GetOptionChain fetches and normalises the chain for one commodity and
// expiry. Rows without a positive strike are dropped.
func (c *Client) GetOptionChain(ctx context.Context, commodity, expiry string) (snap *models.Snapshot, err error) {
	start := time.Now()
	defer func() {
		logging.LogAPICall(c.logger, http.MethodPost, c.cfg.URL, time.Since(start), err)
	}()

	body, err := json.Marshal(map[string]string{
		"Commodity": commodity,
		"Expiry":    expiry,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.Referer != "" {
		req.Header.Set("Referer", c.cfg.Referer)
	}
	if c.cfg.Origin != "" {
		req.Header.Set("Origin", c.cfg.Origin)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewTransportError(c.cfg.URL, 0, "request failed", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewTransportError(c.cfg.URL, resp.StatusCode, "reading body", err)
	}

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Int("length", len(text)).
		Str("preview", preview(text)).
		Msg("Exchange responded")

	trimmed := bytes.TrimSpace(text)
	if bytes.HasPrefix(trimmed, []byte("<")) {
		detail := "HTML document"
		if title := pageTitle(trimmed); title != "" {
			detail = fmt.Sprintf("HTML document %q", title)
		}
		return nil, apperrors.NewUpstreamFormatError("mcx", detail, preview(text), apperrors.ErrHTMLResponse)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewTransportError(c.cfg.URL, resp.StatusCode, preview(text), nil)
	}

	var raw rawResponse
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, apperrors.NewUpstreamFormatError("mcx", "invalid JSON", preview(text), apperrors.ErrMalformedResponse)
	}

	snap = &models.Snapshot{
		Instrument: commodity,
		Expiry:     expiry,
		Records:    []models.OptionRecord{},
		FetchedAt:  c.now(),
		Source:     SourceLive,
	}
	if raw.D == nil {
		return snap, nil
	}

	items := raw.D.Data
	if len(items) > 0 {
		snap.UnderlyingValue = items[0].UnderlyingValue
	}
	for _, it := range items {
		rec := it.record()
		if rec.Strike > 0 {
			snap.Records = append(snap.Records, rec)
		}
	}

	c.logger.Debug().
		Int("records", len(snap.Records)).
		Float64("underlying", snap.UnderlyingValue).
		Msg("Parsed option chain")

	return snap, nil
}

// pageTitle pulls the <title> out of an HTML body for diagnostics.
func pageTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func preview(b []byte) string {
	s := string(b)
	if len(s) > previewLen {
		return s[:previewLen] + "..."
	}
	return s
}
