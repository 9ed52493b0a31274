package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/coordinator"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/monitor"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/normalize"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/sensor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// refreshTimeout bounds how long a manual refresh request waits for its cycle.
const refreshTimeout = 30 * time.Second

// Server provides health, account, and metrics API endpoints.
type Server struct {
	manager  *monitor.Manager
	gatherer prometheus.Gatherer
	mux      *http.ServeMux
	logger   *slog.Logger
}

// AccountReadings is the body of the readings and refresh endpoints.
type AccountReadings struct {
	Status   monitor.Status     `json:"status"`
	Readings normalize.Readings `json:"readings"`
	Sensors  []sensor.Reading   `json:"sensors"`
}

type errorResponse struct {
	Error  string          `json:"error"`
	Status *monitor.Status `json:"status,omitempty"`
}

// NewServer creates an API server. A nil gatherer disables /metrics.
func NewServer(m *monitor.Manager, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	s := &Server{
		manager:  m,
		gatherer: gatherer,
		mux:      http.NewServeMux(),
		logger:   logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/accounts", s.handleAccounts)
	s.mux.HandleFunc("GET /api/v1/accounts/{name}/readings", s.handleReadings)
	s.mux.HandleFunc("POST /api/v1/accounts/{name}/refresh", s.handleRefresh)
	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAccounts(w http.ResponseWriter, _ *http.Request) {
	accounts := s.manager.Accounts()
	statuses := make([]monitor.Status, 0, len(accounts))
	for _, a := range accounts {
		statuses = append(statuses, a.Status())
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.account(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, accountReadings(acct))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.account(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), refreshTimeout)
	defer cancel()

	var err error
	if r.URL.Query().Get("force") == "true" {
		_, err = acct.ForceRefresh(ctx)
	} else {
		_, err = acct.Refresh(ctx)
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, accountReadings(acct))
	case coordinator.IsFetchError(err):
		status := acct.Status()
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Status: &status})
	case errors.Is(err, coordinator.ErrStopped):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "account removed"})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "refresh still running"})
	default:
		s.logger.Error("refresh account", "account", acct.Name(), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *Server) account(w http.ResponseWriter, r *http.Request) (*monitor.Account, bool) {
	acct, err := s.manager.Account(r.PathValue("name"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return nil, false
	}
	return acct, true
}

func accountReadings(acct *monitor.Account) AccountReadings {
	return AccountReadings{
		Status:   acct.Status(),
		Readings: acct.Readings(),
		Sensors:  acct.Sensors().Sensors(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
