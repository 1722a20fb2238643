package http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"gastopro/internal/core"
	"gastopro/internal/services"
)

type createGoalRequest struct {
	Name   string     `json:"name"`
	Target core.Money `json:"target"`
	Emoji  string     `json:"emoji"`
}

type depositRequest struct {
	Date      core.Date  `json:"date"`
	Amount    core.Money `json:"amount"`
	AccountID string     `json:"accountId"`
}

type depositResponse struct {
	Goal        core.SavingsGoal `json:"goal"`
	Transaction core.Transaction `json:"transaction"`
}

type createTemplateRequest struct {
	Kind      core.Kind  `json:"type"`
	Category  string     `json:"category"`
	Amount    core.Money `json:"amount"`
	Note      string     `json:"note"`
	AccountID string     `json:"accountId"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.store.ListGoals(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if goals == nil {
		goals = []core.SavingsGoal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	g := core.SavingsGoal{
		ID:     uuid.NewString(),
		Name:   strings.TrimSpace(req.Name),
		Target: req.Target,
		Emoji:  req.Emoji,
	}
	if err := g.Validate(); err != nil {
		writeError(w, err)
		return
	}

	if err := s.store.InsertGoal(r.Context(), g); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusCreated, g)
}

// handleDeleteGoal removes the goal only. Past deposit transactions
// stay in the log and keep counting toward savings totals.
func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteGoal(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Date.IsZero() {
		req.Date = core.DateOf(s.now())
	}

	goal, companion, err := s.transactions.DepositToGoal(r.Context(), services.DepositParams{
		Date:      req.Date,
		GoalID:    r.PathValue("id"),
		AccountID: req.AccountID,
		Amount:    req.Amount,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	s.invalidateDerived()
	writeJSON(w, http.StatusCreated, depositResponse{Goal: goal, Transaction: companion})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.ListTemplates(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if templates == nil {
		templates = []core.RecurringTemplate{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	tpl := core.RecurringTemplate{
		ID:        uuid.NewString(),
		Kind:      req.Kind,
		Category:  strings.TrimSpace(req.Category),
		Amount:    req.Amount,
		Note:      strings.TrimSpace(req.Note),
		AccountID: core.ResolveAccount(accounts, req.AccountID),
	}
	if err := tpl.Validate(); err != nil {
		writeError(w, err)
		return
	}

	if err := s.store.InsertTemplate(r.Context(), tpl); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusCreated, tpl)
}

// handleDeleteTemplate stops future materializations; transactions
// already materialized from the template are untouched.
func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTemplate(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}
