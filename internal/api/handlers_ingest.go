package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsight/internal/docstore"
	"github.com/dgallion1/docsight/internal/parser"
)

// documentView is the normalized view returned on upload and fetch.
type documentView struct {
	ID        string        `json:"doc_id"`
	Filename  string        `json:"filename"`
	Format    parser.Format `json:"format"`
	Content   string        `json:"content"`
	Structure any           `json:"structure,omitempty"`
	Summary   string        `json:"summary,omitempty"`
}

func viewOf(e *docstore.Entry) documentView {
	return documentView{
		ID:        e.ID,
		Filename:  e.Filename,
		Format:    e.Doc.Format,
		Content:   e.Doc.Content,
		Structure: e.Doc.Structure(),
		Summary:   e.Summary(),
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)

	// Read file data.
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	declared := declaredType(r.FormValue("type"), header.Header.Get("Content-Type"), filename)
	doc, err := s.decoder.Decode(parser.Raw{Data: data, DeclaredType: declared, Filename: filename})
	if err != nil {
		s.decodeFailed(w, parser.Detect(declared), filename, err)
		return
	}

	entry := docstore.NewEntry(filename, data, doc)
	s.store.Put(entry)
	s.metrics.Upload(string(doc.Format))
	s.log.Info("document uploaded",
		"doc_id", entry.ID,
		"filename", filename,
		"format", doc.Format,
		"declared_type", declared,
		"size", len(data),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(viewOf(entry))
}

func (s *Server) decodeFailed(w http.ResponseWriter, format parser.Format, filename string, err error) {
	var decodeErr *parser.DecodeError
	var validationErr *parser.ValidationError
	switch {
	case errors.As(err, &decodeErr):
		s.metrics.DecodeFailure(string(format), "decode")
	case errors.As(err, &validationErr):
		s.metrics.DecodeFailure(string(format), "validation")
	default:
		s.log.Error("decode failed", "filename", filename, "error", err)
		jsonError(w, "failed to decode document", http.StatusInternalServerError)
		return
	}
	s.log.Info("document rejected", "filename", filename, "format", format, "error", err)
	jsonError(w, err.Error(), http.StatusUnprocessableEntity)
}

// declaredType picks the type string that selects the decoder: an explicit
// override, then the part's MIME type, then one derived from the extension.
func declaredType(override, partType, filename string) string {
	if t := strings.TrimSpace(override); t != "" {
		return t
	}
	if mt, _, err := mime.ParseMediaType(partType); err == nil && mt != "application/octet-stream" {
		return mt
	}
	return parser.TypeForFile(filename)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
