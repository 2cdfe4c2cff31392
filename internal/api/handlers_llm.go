package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/docsight/internal/llm"
)

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if !s.llmReady(w) {
		return
	}
	entry := s.entry(w, r)
	if entry == nil {
		return
	}

	summary, err := s.llm.SummarizeDocument(r.Context(), entry.Doc)
	if err != nil {
		s.llmError(w, "summary", err)
		return
	}
	entry.SetSummary(summary)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"summary": summary})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if !s.llmReady(w) {
		return
	}
	entry := s.entry(w, r)
	if entry == nil {
		return
	}

	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	question, err := llm.ValidateQuestion(req.Question)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	answer, err := s.llm.Ask(r.Context(), entry.Doc.Content, question)
	if err != nil {
		s.llmError(w, "ask", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"answer": answer})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !s.llmReady(w) {
		return
	}
	entry := s.entry(w, r)
	if entry == nil {
		return
	}

	analysis, err := s.llm.AnalyzeTrades(r.Context(), entry.Doc.Content)
	if err != nil {
		s.llmError(w, "analyze", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"analysis": analysis})
}

func (s *Server) llmReady(w http.ResponseWriter) bool {
	if s.llm == nil {
		jsonError(w, "language model not configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (s *Server) llmError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, llm.ErrNotTradeRelated):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, llm.ErrUnavailable):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.log.Error("model request failed", "operation", op, "error", err)
		jsonError(w, "language model error: "+err.Error(), http.StatusBadGateway)
	}
}
