// Package export renders flattened rows as .xlsx workbooks and summaries as
// PDF reports. Every entry point returns a valid document: a failure is
// logged, counted, and replaced by a small error document.
package export

import (
	"fmt"
	"log/slog"
)

// FallbackRecorder counts fallback documents by kind ("xlsx" or "pdf").
type FallbackRecorder interface {
	ExportFallback(kind string)
}

// Exporter builds workbooks and PDF reports.
type Exporter struct {
	log *slog.Logger
	rec FallbackRecorder

	renderPDF         func(title, body string) ([]byte, error)
	renderFallbackPDF func() ([]byte, error)
}

// New returns an Exporter. rec may be nil.
func New(log *slog.Logger, rec FallbackRecorder) *Exporter {
	return &Exporter{
		log:               log.With("component", "export"),
		rec:               rec,
		renderPDF:         renderSummary,
		renderFallbackPDF: fallbackPDF,
	}
}

func (e *Exporter) fallback(kind string, cause error) {
	e.log.Error("export failed, returning fallback document", "kind", kind, "error", cause)
	if e.rec != nil {
		e.rec.ExportFallback(kind)
	}
}

// guard converts a panic inside fn into an error.
func guard(fn func() ([]byte, error)) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
