// Package fetcher pulls option chain snapshots from the proxy endpoint.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/rs/zerolog"

	apperrors "mcxdesk/internal/errors"
	"mcxdesk/internal/logging"
	"mcxdesk/internal/models"
)

const excerptLen = 200

// chainQuery is encoded into the proxy URL.
type chainQuery struct {
	Instrument string `url:"instrument"`
	Expiry     string `url:"expiry"`
}

// proxyRow mirrors mcx.ChainRow with every number optional, so absent or
// null fields are told apart from zero before normalisation.
type proxyRow struct {
	StrikePrice *float64 `json:"STRIKE_PRICE"`

	PELTP     *float64 `json:"PE_LTP"`
	PEAbsChng *float64 `json:"PE_ABS_CHNG"`
	PEPerChng *float64 `json:"PE_PER_CHNG"`
	PEVolume  *float64 `json:"PE_VOLUME"`
	PEOI      *float64 `json:"PE_OI"`
	PEOIChng  *float64 `json:"PE_OI_CHNG"`
	PEBid     *float64 `json:"PE_BID"`
	PEAsk     *float64 `json:"PE_ASK"`

	CELTP     *float64 `json:"CE_LTP"`
	CEAbsChng *float64 `json:"CE_ABS_CHNG"`
	CEPerChng *float64 `json:"CE_PER_CHNG"`
	CEVolume  *float64 `json:"CE_VOLUME"`
	CEOI      *float64 `json:"CE_OI"`
	CEOIChng  *float64 `json:"CE_OI_CHNG"`
	CEBid     *float64 `json:"CE_BID"`
	CEAsk     *float64 `json:"CE_ASK"`
}

type proxyResponse struct {
	Data            []proxyRow `json:"data"`
	UnderlyingValue *float64   `json:"underlyingValue"`
	Source          string     `json:"source"`
	Error           string     `json:"error"`
}

// Fetcher requests snapshots from the proxy. It never retries or caches;
// each call is one round trip.
type Fetcher struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates a Fetcher for the proxy option chain URL.
func New(proxyURL string, timeout time.Duration, logger zerolog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Fetcher{
		baseURL: proxyURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logging.WithComponent(logger, "fetcher"),
		now:     time.Now,
	}
}

// FetchSnapshot fetches one snapshot. Failures are TransportError,
// UpstreamFormatError or UpstreamEmptyError. A zero UnderlyingValue means
// the proxy did not report one.
func (f *Fetcher) FetchSnapshot(ctx context.Context, instrument, expiry string) (snap *models.Snapshot, err error) {
	start := time.Now()
	defer func() {
		logging.LogAPICall(f.logger, http.MethodGet, f.baseURL, time.Since(start), err)
	}()

	endpoint, err := f.endpoint(instrument, expiry)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.NewTransportError(f.baseURL, 0, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewTransportError(f.baseURL, resp.StatusCode, "reading body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := excerpt(body)
		var pr proxyResponse
		if json.Unmarshal(body, &pr) == nil && pr.Error != "" {
			msg = pr.Error
		}
		return nil, apperrors.NewTransportError(f.baseURL, resp.StatusCode, msg, nil)
	}

	var pr proxyResponse
	if err := json.Unmarshal(bytes.TrimSpace(body), &pr); err != nil {
		return nil, apperrors.NewUpstreamFormatError("proxy", err.Error(), excerpt(body), apperrors.ErrMalformedResponse)
	}
	if len(pr.Data) == 0 {
		return nil, apperrors.NewUpstreamEmptyError(instrument, expiry)
	}

	snap = &models.Snapshot{
		Instrument:      instrument,
		Expiry:          expiry,
		Records:         normalize(pr.Data),
		UnderlyingValue: num(pr.UnderlyingValue),
		FetchedAt:       f.now(),
		Source:          pr.Source,
	}
	if len(snap.Records) == 0 {
		return nil, apperrors.NewUpstreamEmptyError(instrument, expiry)
	}
	return snap, nil
}

func (f *Fetcher) endpoint(instrument, expiry string) (string, error) {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing proxy url: %w", err)
	}
	v, err := query.Values(chainQuery{Instrument: instrument, Expiry: expiry})
	if err != nil {
		return "", fmt.Errorf("encoding query: %w", err)
	}
	u.RawQuery = v.Encode()
	return u.String(), nil
}

// normalize converts proxy rows into records. Missing numbers become 0,
// turnover is recomputed as LTP x volume and rows without a positive strike
// are dropped.
func normalize(rows []proxyRow) []models.OptionRecord {
	out := make([]models.OptionRecord, 0, len(rows))
	for _, r := range rows {
		strike := num(r.StrikePrice)
		if strike <= 0 {
			continue
		}
		out = append(out, models.OptionRecord{
			Strike: strike,
			Put: side(r.PELTP, r.PEAbsChng, r.PEPerChng, r.PEVolume,
				r.PEOI, r.PEOIChng, r.PEBid, r.PEAsk),
			Call: side(r.CELTP, r.CEAbsChng, r.CEPerChng, r.CEVolume,
				r.CEOI, r.CEOIChng, r.CEBid, r.CEAsk),
		})
	}
	return out
}

func side(ltp, abs, pct, vol, oi, oiChg, bid, ask *float64) models.OptionSide {
	s := models.OptionSide{
		LTP:       num(ltp),
		AbsChange: num(abs),
		PctChange: num(pct),
		Volume:    num(vol),
		OI:        num(oi),
		OIChange:  num(oiChg),
		Bid:       num(bid),
		Ask:       num(ask),
	}
	s.Turnover = s.LTP * s.Volume
	return s
}

func num(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func excerpt(b []byte) string {
	s := string(bytes.TrimSpace(b))
	if len(s) > excerptLen {
		return s[:excerptLen] + "..."
	}
	return s
}
