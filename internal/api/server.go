// Package api serves the option-chain proxy endpoint, the session control
// API and the websocket event stream on one chi router.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"mcxdesk/internal/catalog"
	"mcxdesk/internal/logging"
	"mcxdesk/internal/models"
	"mcxdesk/internal/session"
	"mcxdesk/internal/stream"
)

// ChainSource fetches a chain straight from the exchange. mcx.Client is the
// production ChainSource.
type ChainSource interface {
	GetOptionChain(ctx context.Context, commodity, expiry string) (*models.Snapshot, error)
}

// Options configures a Server. Only Upstream is required; the session routes
// are mounted when Session is set and /api/session/ws when Hub is set.
type Options struct {
	Upstream ChainSource
	Session  *session.Controller
	Hub      *stream.Hub
	Logger   zerolog.Logger

	CORSOrigins    []string
	RequestTimeout time.Duration

	DefaultInstrument string
	DefaultExpiry     string
}

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	upstream ChainSource
	ctrl     *session.Controller
	hub      *stream.Hub
	logger   zerolog.Logger
	baseCtx  context.Context

	origins           []string
	timeout           time.Duration
	defaultInstrument string
	defaultExpiry     string
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.DefaultInstrument == "" {
		opts.DefaultInstrument = catalog.DefaultInstrument
	}
	if opts.DefaultExpiry == "" {
		opts.DefaultExpiry = catalog.DefaultExpiry
	}

	s := &Server{
		upstream:          opts.Upstream,
		ctrl:              opts.Session,
		hub:               opts.Hub,
		logger:            logging.WithComponent(opts.Logger, "api"),
		baseCtx:           context.Background(),
		origins:           opts.CORSOrigins,
		timeout:           opts.RequestTimeout,
		defaultInstrument: opts.DefaultInstrument,
		defaultExpiry:     opts.DefaultExpiry,
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. Timers started through the API live as long as ctx.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.baseCtx = ctx
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	origins := []string{"*"}
	if len(s.origins) > 0 {
		origins = s.origins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	// The websocket sits outside the timeout middleware.
	if s.ctrl != nil && s.hub != nil {
		r.Get("/api/session/ws", s.handleWebSocket)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))

		r.Get("/api/option-chain", s.handleOptionChain)

		if s.ctrl == nil {
			return
		}
		r.Route("/api/session", func(r chi.Router) {
			r.Get("/state", s.handleState)
			r.Get("/snapshot", s.handleSnapshot)
			r.Get("/analytics", s.handleAnalytics)
			r.Get("/history", s.handleHistory)

			r.Get("/alerts", s.handleAlerts)
			r.Delete("/alerts", s.handleClearAlerts)

			r.Post("/fetch", s.handleFetch)
			r.Post("/export", s.handleExport)

			r.Put("/live", s.handleLive)
			r.Put("/auto-refresh", s.handleAutoRefresh)

			r.Get("/settings/alerts", s.handleGetAlertSettings)
			r.Put("/settings/alerts", s.handlePutAlertSettings)
			r.Get("/settings/export", s.handleGetExportSettings)
			r.Put("/settings/export", s.handlePutExportSettings)

			r.Put("/selection", s.handleSelection)
		})
	})

	return r
}

// requestLogger logs each request with zerolog once it completes.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Debug().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("HTTP request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// APIResponse is the standard JSON envelope for session routes.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if s.hub != nil {
		data["stream"] = s.hub.Metrics()
	}

	writeJSON(w, s.logger, http.StatusOK, APIResponse{Success: true, Data: data})
}

func writeJSON(w http.ResponseWriter, logger zerolog.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn().Err(err).Msg("Failed to write JSON response")
	}
}

func (s *Server) writeData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, s.logger, http.StatusOK, APIResponse{Success: true, Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, s.logger, status, APIResponse{Success: false, Error: msg})
}
