package api

import (
	"errors"
	"net/http"
	"strings"

	"mcxdesk/internal/logging"
	"mcxdesk/internal/mcx"

	apperrors "mcxdesk/internal/errors"
)

// handleOptionChain forwards the request to the exchange and returns the
// chain in flat wire form. HTML or non-JSON upstream bodies map to 502;
// anything else that fails maps to 500.
func (s *Server) handleOptionChain(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	instrument := strings.TrimSpace(q.Get("instrument"))
	if instrument == "" {
		instrument = strings.TrimSpace(q.Get("commodity"))
	}
	if instrument == "" {
		instrument = s.defaultInstrument
	}
	expiry := strings.TrimSpace(q.Get("expiry"))
	if expiry == "" {
		expiry = s.defaultExpiry
	}

	logger := logging.WithInstrument(s.logger, instrument, expiry)

	snap, err := s.upstream.GetOptionChain(r.Context(), instrument, expiry)
	if err != nil {
		status, msg := proxyError(err)
		logger.Error().Err(err).Int("status", status).Msg("Proxy request failed")
		writeJSON(w, s.logger, status, mcx.ChainResponse{Error: msg})
		return
	}

	logger.Debug().Int("records", snap.Len()).Msg("Proxied option chain")
	writeJSON(w, s.logger, http.StatusOK, mcx.NewChainResponse(snap))
}

func proxyError(err error) (int, string) {
	var fe *apperrors.UpstreamFormatError
	if errors.As(err, &fe) {
		if errors.Is(err, apperrors.ErrHTMLResponse) {
			return http.StatusBadGateway, "MCX returned HTML document"
		}
		return http.StatusBadGateway, "Invalid JSON response from MCX"
	}
	return http.StatusInternalServerError, "Proxy request failed"
}
