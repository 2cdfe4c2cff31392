package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsight/internal/flatten"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleExportXLSX always answers with a workbook; documents that cannot be
// flattened get the error workbook.
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	entry := s.entry(w, r)
	if entry == nil {
		return
	}

	data := s.exporter.DocumentXLSX(entry.Doc, flatten.Options{Separator: s.cfg.FlattenSeparator})
	attachment(w, xlsxContentType, baseName(entry.Filename)+".xlsx")
	w.Write(data)
}

func (s *Server) handleSummaryPDF(w http.ResponseWriter, r *http.Request) {
	entry := s.entry(w, r)
	if entry == nil {
		return
	}
	summary := entry.Summary()
	if summary == "" {
		jsonError(w, "no summary for this document; POST to /summary first", http.StatusNotFound)
		return
	}

	data := s.exporter.SummaryPDF(entry.Filename, summary)
	if len(data) == 0 {
		jsonError(w, "could not render PDF", http.StatusInternalServerError)
		return
	}
	attachment(w, "application/pdf", baseName(entry.Filename)+"_summary.pdf")
	w.Write(data)
}

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func baseName(filename string) string {
	if b := strings.TrimSuffix(filename, filepath.Ext(filename)); b != "" {
		return b
	}
	return "document"
}
