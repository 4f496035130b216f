package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"mcxdesk/internal/models"

	apperrors "mcxdesk/internal/errors"
)

// ToggleRequest is the body for PUT /api/session/live and /auto-refresh.
type ToggleRequest struct {
	Enabled bool `json:"enabled"`
}

// SelectionRequest is the body for PUT /api/session/selection.
type SelectionRequest struct {
	Instrument string `json:"instrument"`
	Expiry     string `json:"expiry"`
}

// ExportResponse is returned by POST /api/session/export.
type ExportResponse struct {
	Path string `json:"path"`
}

// ModeResponse reports a timer mode after a toggle.
type ModeResponse struct {
	Running   bool `json:"running"`
	Countdown int  `json:"countdown,omitempty"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, s.ctrl.State())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.ctrl.Snapshot()
	if snap == nil {
		s.writeError(w, http.StatusNotFound, "no option chain data yet")
		return
	}
	s.writeData(w, snap)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	a := s.ctrl.Analytics()
	if a == nil {
		s.writeError(w, http.StatusNotFound, "no option chain data yet")
		return
	}
	s.writeData(w, a)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	rows := s.ctrl.History()
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if n > 0 && n < len(rows) {
			rows = rows[len(rows)-n:]
		}
	}
	s.writeData(w, rows)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, s.ctrl.Alerts())
}

func (s *Server) handleClearAlerts(w http.ResponseWriter, r *http.Request) {
	s.ctrl.ClearAlerts()
	s.writeData(w, []models.PriceAlert{})
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	res, err := s.ctrl.FetchNow(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrCycleInProgress):
			s.writeError(w, http.StatusConflict, err.Error())
		case apperrors.IsFetchError(err):
			s.writeError(w, http.StatusBadGateway, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.writeData(w, res)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	path, err := s.ctrl.ExportNow(r.Context())
	if err != nil {
		if errors.Is(err, apperrors.ErrNothingToExport) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeData(w, ExportResponse{Path: path})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Enabled {
		s.ctrl.StartLive(s.baseCtx)
	} else {
		s.ctrl.StopLive()
	}
	s.writeData(w, ModeResponse{Running: s.ctrl.LiveRunning()})
}

func (s *Server) handleAutoRefresh(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Enabled {
		s.ctrl.StartAutoRefresh(s.baseCtx)
	} else {
		s.ctrl.StopAutoRefresh()
	}
	s.writeData(w, ModeResponse{Running: s.ctrl.AutoRefreshRunning(), Countdown: s.ctrl.Countdown()})
}

func (s *Server) handleGetAlertSettings(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, s.ctrl.AlertSettings())
}

func (s *Server) handlePutAlertSettings(w http.ResponseWriter, r *http.Request) {
	settings := s.ctrl.AlertSettings()
	if !s.decode(w, r, &settings) {
		return
	}
	if err := s.ctrl.SetAlertSettings(settings); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeData(w, settings)
}

func (s *Server) handleGetExportSettings(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, s.ctrl.ExportSettings())
}

func (s *Server) handlePutExportSettings(w http.ResponseWriter, r *http.Request) {
	settings := s.ctrl.ExportSettings()
	if !s.decode(w, r, &settings) {
		return
	}
	if err := s.ctrl.SetExportSettings(settings); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeData(w, settings)
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.ctrl.SelectInstrument(req.Instrument, req.Expiry); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeData(w, req)
}

// decode reads a JSON body into v, writing a 400 on failure. Fields absent
// from the body keep the values v already holds.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
