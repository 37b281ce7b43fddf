// Package httpapi exposes the tracker over a JSON HTTP API. Rendering is a
// client concern; every payload here is a read snapshot of the store.
package httpapi

import (
	"net/http"
	"time"

	"tally/internal/cache"
	"tally/internal/log"
	"tally/internal/services"
	"tally/internal/storage"
)

type Server struct {
	store     *storage.Store
	txns      *services.TransactionService
	logger    *log.Logger
	dashCache *cache.Cache[dashboardResponse]

	defaultWindowDays int
}

func NewServer(store *storage.Store, txns *services.TransactionService, logger *log.Logger, windowDays int, cacheTTL time.Duration) *Server {
	return &Server{
		store:             store,
		txns:              txns,
		logger:            logger.WithComponent(log.ComponentHTTP),
		dashCache:         cache.New[dashboardResponse](cacheTTL),
		defaultWindowDays: windowDays,
	}
}

// Handler builds the route table wrapped in the trace middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/transactions/export", s.handleExportCSV)
	mux.HandleFunc("POST /api/transactions/import", s.handleImportCSV)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("PUT /api/budgets", s.handleUpsertBudget)
	mux.HandleFunc("DELETE /api/budgets/{category}", s.handleDeleteBudget)

	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("POST /api/goals", s.handleCreateGoal)
	mux.HandleFunc("PUT /api/goals/{id}", s.handleUpdateGoal)
	mux.HandleFunc("DELETE /api/goals/{id}", s.handleDeleteGoal)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	return s.trace(mux)
}

// NewHTTPServer wraps the handler in an http.Server with sane limits.
func NewHTTPServer(addr string, s *Server) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        s.Handler(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16, // 64KB
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
