package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/docsight/internal/docstore"
	"github.com/go-chi/chi/v5"
)

// handleListDocuments lists the documents currently held.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": s.store.List()})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	entry := s.entry(w, r)
	if entry == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(viewOf(entry))
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if !s.store.Delete(docID) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	s.log.Info("document deleted", "doc_id", docID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"deleted": docID})
}

// entry looks up the {docID} entry, writing a 404 when it is missing.
func (s *Server) entry(w http.ResponseWriter, r *http.Request) *docstore.Entry {
	e := s.store.Get(chi.URLParam(r, "docID"))
	if e == nil {
		jsonError(w, "document not found", http.StatusNotFound)
	}
	return e
}
