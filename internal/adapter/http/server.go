// Package http exposes health endpoints and the query API over the loaded
// violations dataset.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nmfoodwatch/inspection-etl/internal/domain"
	"github.com/nmfoodwatch/inspection-etl/internal/view"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes health, readiness, metrics, and dataset query routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	opts       domain.AggregateOptions

	mu      sync.RWMutex
	records []domain.InspectionRecord
}

// NewServer creates the HTTP server. The dataset starts empty; call
// SetDataset once it is loaded.
func NewServer(addr string, ready ReadinessChecker, opts domain.AggregateOptions, logger *slog.Logger) *Server {
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
		opts:   opts,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/records", s.handleRecords)
	mux.HandleFunc("GET /api/groups", s.handleGroups)
	mux.HandleFunc("GET /api/export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /api/export.json", s.handleExportJSON)

	return s
}

// SetDataset replaces the served dataset wholesale.
func (s *Server) SetDataset(records []domain.InspectionRecord) {
	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// state builds a per-request view over the current dataset. State is not
// concurrency-safe, so each request gets its own.
func (s *Server) state(r *http.Request) (*view.State, error) {
	filter, sortOrder, err := parseQuery(r)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	records := s.records
	s.mu.RUnlock()

	st := view.NewState(s.opts)
	st.LoadDataset(records)
	st.ApplyFilter(filter)
	st.ApplySort(sortOrder)
	return st, nil
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	st, err := s.state(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	records := st.Records()
	if records == nil {
		records = []domain.InspectionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   st.FilteredCount(),
		"records": records,
	})
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	st, err := s.state(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	groups := st.Groups()
	if groups == nil {
		groups = []domain.EstablishmentGroup{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(groups),
		"groups": groups,
	})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	st, err := s.state(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="violations.csv"`)
	if err := view.ExportCSV(w, st.Groups()); err != nil {
		s.logger.Error("csv export failed", "error", err)
	}
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	st, err := s.state(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := view.ExportJSON(w, st.Groups()); err != nil {
		s.logger.Error("json export failed", "error", err)
	}
}

// parseQuery maps query parameters to a filter and sort order: repeated
// city and severity params, days window, free-text q, and sort.
func parseQuery(r *http.Request) (view.Filter, domain.SortOrder, error) {
	q := r.URL.Query()

	filter := view.Filter{
		Cities: q["city"],
		Levels: q["severity"],
		Query:  q.Get("q"),
	}

	if days := q.Get("days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return view.Filter{}, "", errBadParam("days", days)
		}
		filter.Days = n
	}

	switch q.Get("sort") {
	case "", "severity":
		return filter, domain.SortBySeverity, nil
	case "date":
		return filter, domain.SortByDate, nil
	case "name":
		return filter, domain.SortByName, nil
	default:
		return view.Filter{}, "", errBadParam("sort", q.Get("sort"))
	}
}

type badParamError struct {
	param, value string
}

func (e badParamError) Error() string {
	return "invalid " + e.param + " parameter: " + e.value
}

func errBadParam(param, value string) error {
	return badParamError{param: param, value: value}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
