package export

import (
	"bytes"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	// WrapBudget is the usable line width in millimetres.
	WrapBudget = 180.0

	// FallbackPDFTitle heads the PDF returned when rendering fails.
	FallbackPDFTitle = "Error Creating PDF"

	fallbackPDFMessage = "Could not generate PDF with special characters. Please try again."
	lineHeight         = 10.0
)

var asciiReplacer = strings.NewReplacer(
	"€", "EUR",
	"—", "-",
	"–", "-",
	"“", `"`,
	"”", `"`,
	"‘", "'",
	"’", "'",
	"…", "...",
)

// Sanitize maps a few common typographic runes to ASCII and drops every
// other non-ASCII rune. The core PDF fonts cannot encode them.
func Sanitize(s string) string {
	s = asciiReplacer.Replace(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] < 0x80 {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Wrap greedily fills lines word by word while width(line) stays below
// budget. Newlines in text are hard breaks and words are never split, so a
// word wider than the budget sits on a line of its own. Blank input lines
// produce no output.
func Wrap(text string, budget float64, width func(string) float64) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		current := ""
		for _, word := range strings.Fields(line) {
			if current == "" {
				current = word
				continue
			}
			candidate := current + " " + word
			if width(candidate) < budget {
				current = candidate
				continue
			}
			out = append(out, current)
			current = word
		}
		if current != "" {
			out = append(out, current)
		}
	}
	return out
}

// SummaryPDF renders the summary of the named document as an A4 report,
// one wrapped paragraph per input line. It always returns a PDF.
func (e *Exporter) SummaryPDF(name, summary string) []byte {
	out, err := guard(func() ([]byte, error) {
		return e.renderPDF("Summary of "+name, summary)
	})
	if err != nil {
		e.fallback("pdf", err)
		return e.pdfFallback()
	}
	return out
}

// pdfFallback returns the error PDF, or nil when even that cannot be built.
func (e *Exporter) pdfFallback() []byte {
	out, err := guard(e.renderFallbackPDF)
	if err != nil {
		e.log.Error("fallback pdf", "error", err)
		return nil
	}
	return out
}

// summaryLines is the body as printed: sanitized, then wrapped.
func summaryLines(body string, width func(string) float64) []string {
	return Wrap(Sanitize(body), WrapBudget, width)
}

func renderSummary(title, body string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, lineHeight, Sanitize(title), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 12)
	for _, line := range summaryLines(body, pdf.GetStringWidth) {
		pdf.MultiCell(0, lineHeight, line, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fallbackPDF() ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, lineHeight, FallbackPDFTitle, "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.MultiCell(0, lineHeight, fallbackPDFMessage, "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
