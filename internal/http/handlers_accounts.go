package http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"gastopro/internal/core"
)

type accountRequest struct {
	Name string `json:"name"`
}

type budgetRequest struct {
	Category string     `json:"category"`
	Limit    core.Money `json:"limit"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if accounts == nil {
		accounts = []core.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, core.ErrEmptyName)
		return
	}

	a := core.Account{ID: uuid.NewString(), Name: name}
	if err := s.store.InsertAccount(r.Context(), a); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleRenameAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, core.ErrEmptyName)
		return
	}

	id := r.PathValue("id")
	if err := s.store.RenameAccount(r.Context(), id, name); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusOK, core.Account{ID: id, Name: name})
}

// handleDeleteAccount refuses to delete an account that still has
// transactions; history must stay explainable.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAccount(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.store.GetBudgets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

// handleSetBudget upserts one category ceiling. Zero disables tracking
// for the category.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		writeError(w, core.ErrEmptyCategory)
		return
	}
	if req.Limit.Cents < 0 {
		writeError(w, core.ErrInvalidAmount)
		return
	}

	if err := s.store.SetBudget(r.Context(), category, req.Limit); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusOK, map[string]any{"category": category, "limit": req.Limit})
}
