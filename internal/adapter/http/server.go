package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/metar-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxPageBytes bounds the body accepted by /parse.
const maxPageBytes = 4 << 20

// Server exposes health, readiness, metrics, and ad-hoc parse endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// parseResponse is the /parse result for one page.
type parseResponse struct {
	Station       string            `json:"station"`
	LinesScanned  int               `json:"lines_scanned"`
	LinesAccepted int               `json:"lines_accepted"`
	Rows          []domain.FieldRow `json:"rows"`
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and /parse routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /parse", s.handleParse)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleParse runs the line filter and tokenizer over a posted page of text
// for the station given in the "station" query parameter.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	station := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("station")))
	if station == "" {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "station query parameter is required"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPageBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	result := domain.ParsePage(string(body), station)
	if result.Empty() {
		s.logger.Warn("no rows produced for page", "station", station,
			"lines_scanned", result.LinesScanned, "lines_accepted", result.LinesAccepted)
	}

	rows := result.Rows
	if rows == nil {
		rows = []domain.FieldRow{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, parseResponse{
		Station:       station,
		LinesScanned:  result.LinesScanned,
		LinesAccepted: result.LinesAccepted,
		Rows:          rows,
	})
}
