// Package server serves the live dashboard and the user actions over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Zachdehooge/grid-dashboard/internal/generator"
	"github.com/Zachdehooge/grid-dashboard/internal/incident"
)

// Dashboard is the state and the actions the server exposes.
type Dashboard interface {
	Snapshot() generator.Dashboard
	Ignore(ctx context.Context, id string) error
	ClearIgnored(ctx context.Context) error
	SetSuppressMaintenance(ctx context.Context, v bool)
	SetAlertsEnabled(ctx context.Context, v bool)
}

type Options struct {
	// Metrics serves /metrics; promhttp.Handler() when nil.
	Metrics  http.Handler
	Logger   *zap.Logger
	Location *time.Location
}

type Server struct {
	dash    Dashboard
	metrics http.Handler
	log     *zap.Logger
	loc     *time.Location
	router  *mux.Router
}

func New(dash Dashboard, opts Options) *Server {
	s := &Server{
		dash:    dash,
		metrics: opts.Metrics,
		log:     opts.Logger,
		loc:     opts.Location,
	}
	if s.metrics == nil {
		s.metrics = promhttp.Handler()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.Named("server")
	if s.loc == nil {
		s.loc = time.UTC
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	// Ids may contain an escaped slash.
	r := mux.NewRouter().UseEncodedPath()
	r.Use(s.logRequests)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/"+generator.HTMLFile, s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/chart/history", s.handleHistoryChart).Methods(http.MethodGet)
	// The page embeds the chart by its file name.
	r.HandleFunc("/"+generator.ChartFile, s.handleHistoryChart).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/incidents", s.handleIncidents).Methods(http.MethodGet)
	api.HandleFunc("/incidents.geojson", s.handleGeoJSON).Methods(http.MethodGet)
	api.HandleFunc("/weather", s.handleWeather).Methods(http.MethodGet)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/ignored", s.handleListIgnored).Methods(http.MethodGet)
	api.HandleFunc("/ignored", s.handleClearIgnored).Methods(http.MethodDelete)
	api.HandleFunc("/ignored/{id}", s.handleIgnore).Methods(http.MethodPost)
	api.HandleFunc("/settings", s.handleSettings).Methods(http.MethodPut)

	// Catch the remaining methods on the action routes after the
	// method-restricted ones so they answer 405 instead of 404.
	api.Handle("/ignored", methodNotAllowed(http.MethodGet, http.MethodDelete))
	api.Handle("/ignored/{id}", methodNotAllowed(http.MethodPost))
	api.Handle("/settings", methodNotAllowed(http.MethodPut))
	return r
}

func methodNotAllowed(allowed ...string) http.Handler {
	allow := strings.Join(allowed, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := generator.RenderLiveHTML(&buf, s.dash.Snapshot()); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to render dashboard", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHistoryChart(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := generator.RenderHistoryChart(&buf, s.dash.Snapshot().History, s.loc); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to render chart", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.Snapshot())
}

type incidentsResponse struct {
	Incidents []incident.Record `json:"incidents"`
	Total     int               `json:"total"`
	Error     string            `json:"error,omitempty"`
}

func (s *Server) handleIncidents(w http.ResponseWriter, r *http.Request) {
	d := s.dash.Snapshot()
	writeJSON(w, http.StatusOK, incidentsResponse{
		Incidents: d.Incidents,
		Total:     d.Total,
		Error:     d.IncidentError,
	})
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	data, err := generator.IncidentsGeoJSON(s.dash.Snapshot().Incidents)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to encode incidents", err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.Snapshot().Weather)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.Snapshot().History)
}

type ignoredResponse struct {
	Ignored []string `json:"ignored"`
}

func (s *Server) ignoredResponse() ignoredResponse {
	ids := s.dash.Snapshot().Ignored
	if ids == nil {
		ids = []string{}
	}
	return ignoredResponse{Ignored: ids}
}

func (s *Server) handleListIgnored(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ignoredResponse())
}

func (s *Server) handleIgnore(w http.ResponseWriter, r *http.Request) {
	id, err := url.PathUnescape(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid incident id", err)
		return
	}
	if err := s.dash.Ignore(r.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, incident.ErrEmptyID) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, "failed to ignore incident", err)
		return
	}
	writeJSON(w, http.StatusOK, s.ignoredResponse())
}

func (s *Server) handleClearIgnored(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.ClearIgnored(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to clear ignored incidents", err)
		return
	}
	writeJSON(w, http.StatusOK, s.ignoredResponse())
}

type settingsRequest struct {
	SuppressMaintenance *bool `json:"suppressMaintenance"`
	AlertsEnabled       *bool `json:"alertsEnabled"`
}

type settingsResponse struct {
	SuppressMaintenance bool `json:"suppressMaintenance"`
	AlertsEnabled       bool `json:"alertsEnabled"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid settings body", err)
		return
	}
	if req.SuppressMaintenance == nil && req.AlertsEnabled == nil {
		s.writeError(w, http.StatusBadRequest, "no settings given", nil)
		return
	}
	if req.SuppressMaintenance != nil {
		s.dash.SetSuppressMaintenance(r.Context(), *req.SuppressMaintenance)
	}
	if req.AlertsEnabled != nil {
		s.dash.SetAlertsEnabled(r.Context(), *req.AlertsEnabled)
	}
	d := s.dash.Snapshot()
	writeJSON(w, http.StatusOK, settingsResponse{
		SuppressMaintenance: d.SuppressMaintenance,
		AlertsEnabled:       d.AlertsEnabled,
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, err error) {
	fields := []zap.Field{zap.Int("status", status)}
	if err != nil {
		fields = append(fields, zap.Error(err))
		msg = msg + ": " + err.Error()
	}
	s.log.Warn(msg, fields...)
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
