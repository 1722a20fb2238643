// Package http exposes the JSON API the SPA talks to. Handlers stay
// thin: parse, call a service or engine, encode. All derived numbers
// come from internal/analytics on demand, with a short-lived LRU cache
// in front of the dashboard that every write purges.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"gastopro/internal/cache"
	"gastopro/internal/export"
	"gastopro/internal/fx"
	"gastopro/internal/log"
	"gastopro/internal/services"
)

type Server struct {
	http.Server

	store        services.Store
	transactions *services.TransactionService
	recurring    *services.RecurringService
	assistant    *services.Assistant
	exporter     *export.Service
	fxClient     *fx.Client
	logger       *log.Logger

	rateLimiter    *rateLimiter
	dashboardCache *cache.LRUCache[DashboardResponse]
	metrics        *securityMetrics
	shutdownOnce   sync.Once

	now func() time.Time
}

// Deps carries everything the server needs; all fields are required
// except FX (nil disables the widget's live fetch, not the endpoint).
type Deps struct {
	Store        services.Store
	Transactions *services.TransactionService
	Recurring    *services.RecurringService
	Assistant    *services.Assistant
	Exporter     *export.Service
	FX           *fx.Client
	Logger       *log.Logger
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:          deps.Store,
		transactions:   deps.Transactions,
		recurring:      deps.Recurring,
		assistant:      deps.Assistant,
		exporter:       deps.Exporter,
		fxClient:       deps.FX,
		logger:         deps.Logger.WithComponent(log.ComponentHTTP),
		rateLimiter:    newRateLimiter(),
		dashboardCache: cache.NewLRUCache[DashboardResponse](24, 5*time.Minute),
		metrics:        &securityMetrics{},
		now:            time.Now,
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.secured(s.handleMetrics))

	mux.HandleFunc("GET /api/transactions", s.secured(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.secured(s.handleCreateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.secured(s.handleDeleteTransaction))
	mux.HandleFunc("POST /api/transfers", s.secured(s.handleTransfer))

	mux.HandleFunc("GET /api/accounts", s.secured(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.secured(s.handleCreateAccount))
	mux.HandleFunc("PUT /api/accounts/{id}", s.secured(s.handleRenameAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.secured(s.handleDeleteAccount))

	mux.HandleFunc("GET /api/budgets", s.secured(s.handleGetBudgets))
	mux.HandleFunc("PUT /api/budgets", s.secured(s.handleSetBudget))

	mux.HandleFunc("GET /api/templates", s.secured(s.handleListTemplates))
	mux.HandleFunc("POST /api/templates", s.secured(s.handleCreateTemplate))
	mux.HandleFunc("DELETE /api/templates/{id}", s.secured(s.handleDeleteTemplate))

	mux.HandleFunc("GET /api/goals", s.secured(s.handleListGoals))
	mux.HandleFunc("POST /api/goals", s.secured(s.handleCreateGoal))
	mux.HandleFunc("DELETE /api/goals/{id}", s.secured(s.handleDeleteGoal))
	mux.HandleFunc("POST /api/goals/{id}/deposit", s.secured(s.handleDeposit))

	mux.HandleFunc("GET /api/dashboard", s.secured(s.handleDashboard))
	mux.HandleFunc("GET /api/fx", s.secured(s.handleFX))

	mux.HandleFunc("GET /api/preferences", s.secured(s.handleGetPreference))
	mux.HandleFunc("PUT /api/preferences", s.secured(s.handleSetPreference))

	mux.HandleFunc("GET /api/export/json", s.secured(s.handleExportJSON))
	mux.HandleFunc("GET /api/export/csv", s.secured(s.handleExportCSV))
	mux.HandleFunc("POST /api/import", s.secured(s.handleImport))

	mux.HandleFunc("GET /api/assistant", s.secured(s.handleTranscript))
	mux.HandleFunc("POST /api/assistant", s.secured(s.handleAsk))

	return s
}

// Shutdown stops the server and its background goroutines once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// invalidateDerived drops cached dashboards after any write.
func (s *Server) invalidateDerived() {
	s.dashboardCache.Purge()
}

// secured wraps a handler with security headers, per-IP rate limiting
// on mutating methods, request ids and access logging.
func (s *Server) secured(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := r.Context()
		reqLogger := s.logger.With(log.FieldRequestID, requestID)
		r = r.WithContext(ctx)

		if isSuspiciousRequest(r, s.metrics) {
			reqLogger.WarnContext(ctx, "Suspicious request pattern",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
		}

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			reqLogger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		log.AccessLog(ctx, reqLogger, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}

// responseWriter captures the status code for access logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Ready when storage answers.
	if _, err := s.store.ListAccounts(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "storage unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	rateLimitHits, suspicious := s.metrics.snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"rate_limit_hits":     rateLimitHits,
		"suspicious_requests": suspicious,
		"dashboard_cache":     s.dashboardCache.Size(),
	})
}
