package http

import (
	"net/http"
	"strconv"
	"strings"

	"gastopro/internal/core"
	"gastopro/internal/services"
)

type createTransactionRequest struct {
	Date      core.Date  `json:"date"`
	Kind      core.Kind  `json:"type"`
	Category  string     `json:"category"`
	Note      string     `json:"note"`
	Amount    core.Money `json:"amount"`
	Tags      []string   `json:"tags"`
	AccountID string     `json:"accountId"`
}

type transferRequest struct {
	Date          core.Date  `json:"date"`
	FromAccountID string     `json:"fromAccountId"`
	ToAccountID   string     `json:"toAccountId"`
	Amount        core.Money `json:"amount"`
	Note          string     `json:"note"`
}

// handleListTransactions supports ?year=&month= (both or neither),
// ?type= and a free-text ?q= over note, category, tags and account.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.ListFilter{
		Kind:  core.Kind(strings.TrimSpace(q.Get("type"))),
		Query: q.Get("q"),
	}
	filter.Year, _ = strconv.Atoi(q.Get("year"))
	filter.Month, _ = strconv.Atoi(q.Get("month"))

	if filter.Kind != "" {
		if err := filter.Kind.Validate(); err != nil {
			writeError(w, err)
			return
		}
	}

	txs, err := s.transactions.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Date.IsZero() {
		req.Date = core.DateOf(s.now())
	}

	t, err := s.transactions.Create(r.Context(), services.CreateParams{
		Date:      req.Date,
		Kind:      req.Kind,
		Category:  req.Category,
		Note:      req.Note,
		Amount:    req.Amount,
		Tags:      req.Tags,
		AccountID: req.AccountID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	s.invalidateDerived()
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.transactions.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Date.IsZero() {
		req.Date = core.DateOf(s.now())
	}

	legs, err := s.transactions.Transfer(r.Context(), services.TransferParams{
		Date:          req.Date,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Note:          req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	s.invalidateDerived()
	writeJSON(w, http.StatusCreated, legs[:])
}

// monthParams reads ?year=&month= with the current month as default.
func (s *Server) monthParams(r *http.Request) (int, int) {
	now := s.now()
	year, month := now.Year(), int(now.Month())

	q := r.URL.Query()
	if y, err := strconv.Atoi(q.Get("year")); err == nil && y > 0 {
		year = y
	}
	if m, err := strconv.Atoi(q.Get("month")); err == nil && m >= 1 && m <= 12 {
		month = m
	}
	return year, month
}
