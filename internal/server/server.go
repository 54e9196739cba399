// Package server exposes the engine's persisted output over a read-only
// HTTP API. It never touches engine-internal state: every request reads the
// last durable snapshot, alert log tail, or probe history.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/znetops/netmon/internal/config"
	"github.com/znetops/netmon/internal/history"
	"github.com/znetops/netmon/internal/status"
)

// StateReader returns the last persisted status snapshot.
type StateReader interface {
	Read() (map[string]status.TargetStatus, error)
}

// AlertReader returns the most recent n transition events.
type AlertReader interface {
	Recent(n int) ([]status.AlertEvent, error)
}

// HistoryReader serves per-target probe history. May be nil.
type HistoryReader interface {
	TargetHistory(ctx context.Context, target string, limit, offset int) ([]history.Record, int, error)
	Latest(ctx context.Context, target string) (*history.Record, error)
	UptimePercent(ctx context.Context, target string, last int) (float64, error)
}

// Server holds the chi router and its dependencies.
type Server struct {
	state   StateReader
	alerts  AlertReader
	history HistoryReader
	targets []config.Target
	router  chi.Router
	logger  *zap.Logger
}

// New creates a new Server and registers all routes.
func New(state StateReader, alerts AlertReader, hist HistoryReader, targets []config.Target, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		state:   state,
		alerts:  alerts,
		history: hist,
		targets: targets,
		router:  chi.NewRouter(),
		logger:  logger,
	}
	s.registerRoutes()
	return s
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll().Handler)
	r.Use(s.requestLogger)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/alerts", s.handleAlerts)
	r.Get("/api/targets", s.handleListTargets)
	r.Get("/api/targets/{name}", s.handleTargetDetail)
	r.Get("/api/targets/{name}/history", s.handleTargetHistory)
	r.Get("/api/targets/{name}/uptime", s.handleTargetUptime)
}

// --- Response helpers ---

type envelope struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(envelope{OK: true, Data: data})
}

func writeError(w http.ResponseWriter, statusCode int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(envelope{OK: false, Error: msg})
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.state.Read()
	if err != nil {
		s.logger.Error("read_snapshot", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	const maxLimit = 1000

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		// Zero is rejected too: Recent(0) means "everything", which would
		// sidestep the cap on an unbounded log.
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		if n > maxLimit {
			n = maxLimit
		}
		limit = n
	}

	events, err := s.alerts.Recent(limit)
	if err != nil {
		s.logger.Error("read_alerts", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

type targetSummary struct {
	Name    string `json:"name"`
	Host    string `json:"host"`
	Probe   string `json:"probe"`
	Timeout string `json:"timeout"`

	Status        status.Status `json:"status"`
	LastLatencyMS *int64        `json:"last_latency_ms"`
	Failures      int           `json:"failures"`
	LastSeen      *time.Time    `json:"last_seen"`
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.state.Read()
	if err != nil {
		s.logger.Error("read_snapshot", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	summaries := make([]targetSummary, 0, len(s.targets))
	for _, tgt := range s.targets {
		summaries = append(summaries, summarize(tgt, snapshot))
	}
	writeJSON(w, http.StatusOK, summaries)
}

func summarize(tgt config.Target, snapshot map[string]status.TargetStatus) targetSummary {
	sum := targetSummary{
		Name:    tgt.Name,
		Host:    tgt.Host,
		Probe:   tgt.Probe,
		Timeout: tgt.Timeout.Duration.String(),
	}
	if st, ok := snapshot[tgt.Name]; ok {
		sum.Status = st.Status
		sum.LastLatencyMS = st.LastLatencyMS
		sum.Failures = st.Failures
		sum.LastSeen = st.LastSeen
	}
	return sum
}

type targetDetail struct {
	targetSummary
	LastProbe *history.Record `json:"last_probe,omitempty"`
}

func (s *Server) handleTargetDetail(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	tgt, ok := s.targetIndex()[name]
	if !ok {
		writeError(w, http.StatusNotFound, "target not found")
		return
	}

	snapshot, err := s.state.Read()
	if err != nil {
		s.logger.Error("read_snapshot", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	detail := targetDetail{targetSummary: summarize(tgt, snapshot)}
	if s.history != nil {
		rec, err := s.history.Latest(r.Context(), name)
		if err != nil {
			s.logger.Error("target_latest", zap.String("target", name), zap.Error(err))
		} else {
			detail.LastProbe = rec
		}
	}
	writeJSON(w, http.StatusOK, detail)
}

// targetIndex returns a map from target name → config.Target.
func (s *Server) targetIndex() map[string]config.Target {
	idx := make(map[string]config.Target, len(s.targets))
	for _, tgt := range s.targets {
		idx[tgt.Name] = tgt
	}
	return idx
}

type historyResponse struct {
	Probes []history.Record `json:"probes"`
	Total  int              `json:"total"`
}

func (s *Server) handleTargetHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := s.targetIndex()[name]; !ok {
		writeError(w, http.StatusNotFound, "target not found")
		return
	}
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history disabled")
		return
	}

	const maxLimit = 1000

	limit := 50
	offset := 0

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		if n > maxLimit {
			n = maxLimit
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset parameter")
			return
		}
		offset = n
	}

	probes, total, err := s.history.TargetHistory(r.Context(), name, limit, offset)
	if err != nil {
		s.logger.Error("target_history", zap.String("target", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Probes: probes, Total: total})
}

type uptimeResponse struct {
	Target        string  `json:"target"`
	UptimePercent float64 `json:"uptime_percent"`
	Window        int     `json:"window"`
}

func (s *Server) handleTargetUptime(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := s.targetIndex()[name]; !ok {
		writeError(w, http.StatusNotFound, "target not found")
		return
	}
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history disabled")
		return
	}

	window := 100
	if v := r.URL.Query().Get("last"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid last parameter")
			return
		}
		window = n
	}

	pct, err := s.history.UptimePercent(r.Context(), name, window)
	if err != nil {
		s.logger.Error("target_uptime", zap.String("target", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, uptimeResponse{Target: name, UptimePercent: pct, Window: window})
}

// --- Middleware ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
