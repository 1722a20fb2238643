package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"gastopro/internal/analytics"
	"gastopro/internal/core"
	"gastopro/internal/fx"
	"gastopro/internal/log"
)

// DashboardResponse is every derived number the SPA renders for one
// month, computed in a single request.
type DashboardResponse struct {
	Year         int                        `json:"year"`
	Month        int                        `json:"month"`
	Totals       analytics.Totals           `json:"totals"`
	ByCategory   []analytics.CategoryAmount `json:"byCategory"`
	Trend        []analytics.TrendPoint     `json:"trend"`
	Projection   core.Money                 `json:"projection"`
	Comparison   analytics.MonthComparison  `json:"comparison"`
	Balances     []analytics.AccountBalance `json:"balances"`
	TotalBalance core.Money                 `json:"totalBalance"`
	Budgets      []analytics.BudgetLine     `json:"budgets"`
	Savings      SavingsSnapshot            `json:"savings"`
}

// SavingsSnapshot groups the gamified savings numbers.
type SavingsSnapshot struct {
	TotalSaved   core.Money                `json:"totalSaved"`
	StreakDays   int                       `json:"streakDays"`
	Challenge    analytics.WeeklyChallenge `json:"challenge"`
	Achievements []analytics.Achievement   `json:"achievements"`
	Goals        []core.SavingsGoal        `json:"goals"`
}

type fxResponse struct {
	Rates fx.Rates `json:"rates"`
	Live  bool     `json:"live"`
}

type preferenceRequest struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// handleDashboard materializes the requested month's recurring
// templates first, then folds the full dataset into one response.
// Results are cached per month; every write purges the cache.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	year, month := s.monthParams(r)
	cacheKey := fmt.Sprintf("%04d-%02d", year, month)

	if cached, ok := s.dashboardCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	if created, err := s.recurring.MaterializeMonth(ctx, year, month); err != nil {
		// The dashboard still renders; the month just misses its
		// recurring rows until the next run.
		s.logger.ErrorContext(ctx, "Failed to materialize recurring templates",
			log.FieldYear, year, log.FieldMonth, month, log.FieldError, err)
	} else if created > 0 {
		s.invalidateDerived()
	}

	all, err := s.store.ListTransactions(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	budgets, err := s.store.GetBudgets(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	goals, err := s.store.ListGoals(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if goals == nil {
		goals = []core.SavingsGoal{}
	}

	now := s.now()
	monthTxs := analytics.FilterMonth(all, year, month)
	totals := analytics.Summarize(monthTxs)
	balances := analytics.Balances(all, accounts)
	totalSaved := analytics.TotalSaved(all)
	streak := analytics.StreakDays(all, now)

	resp := DashboardResponse{
		Year:         year,
		Month:        month,
		Totals:       totals,
		ByCategory:   analytics.CategoryBreakdown(monthTxs),
		Trend:        analytics.TrendSeries(all, year, month),
		Projection:   analytics.Projection(totals.Net, year, month, now),
		Comparison:   analytics.CompareExpenses(all, year, month),
		Balances:     balances,
		TotalBalance: analytics.TotalBalance(balances),
		Budgets:      analytics.BudgetReport(analytics.SpentByCategory(monthTxs), budgets),
		Savings: SavingsSnapshot{
			TotalSaved:   totalSaved,
			StreakDays:   streak,
			Challenge:    analytics.Challenge(all, now),
			Achievements: analytics.Achievements(streak, totalSaved, goals),
			Goals:        goals,
		},
	}

	s.dashboardCache.Set(cacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

// handleFX never fails: without a configured client, or on any fetch
// error, the fixed fallback rates come back with live=false.
func (s *Server) handleFX(w http.ResponseWriter, r *http.Request) {
	if s.fxClient == nil {
		writeJSON(w, http.StatusOK, fxResponse{Rates: fx.FallbackRates, Live: false})
		return
	}
	rates, live := s.fxClient.Latest(r.Context())
	writeJSON(w, http.StatusOK, fxResponse{Rates: rates, Live: live})
}

// handleGetPreference returns the stored value for ?key=. The two
// seeded keys fall back to their defaults when nothing is stored.
func (s *Server) handleGetPreference(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing key parameter"})
		return
	}

	raw, ok, err := s.store.GetPreference(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		switch key {
		case "catIcons":
			writeJSON(w, http.StatusOK, core.DefaultCategoryIcons())
		case "kpiPrefs":
			writeJSON(w, http.StatusOK, core.DefaultKPIPrefs())
		default:
			writeError(w, core.ErrNotFound)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (s *Server) handleSetPreference(w http.ResponseWriter, r *http.Request) {
	var req preferenceRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	key := strings.TrimSpace(req.Key)
	if key == "" || len(req.Value) == 0 || !json.Valid(req.Value) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "key and a JSON value are required"})
		return
	}

	if err := s.store.SetPreference(r.Context(), key, req.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key})
}
