package http

import (
	"io"
	"net/http"
	"strings"

	"gastopro/internal/log"
	"gastopro/internal/services"
)

// importBodyLimit caps the accepted bundle size at 10 MiB.
const importBodyLimit = 10 << 20

type askRequest struct {
	Prompt string `json:"prompt"`
}

type askResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	data, err := s.exporter.ExportJSON(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="gastopro-export.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	data, err := s.exporter.ExportCSV(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="gastopro-export.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, importBodyLimit))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
		return
	}

	if err := s.exporter.ImportJSON(r.Context(), data); err != nil {
		writeError(w, err)
		return
	}

	s.invalidateDerived()
	s.logger.InfoContext(r.Context(), "Dataset imported", log.FieldOperation, log.OpImport)
	writeJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.assistant.Transcript(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if msgs == nil {
		msgs = []services.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "empty prompt"})
		return
	}

	reply, err := s.assistant.Ask(r.Context(), req.Prompt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Reply: reply})
}
