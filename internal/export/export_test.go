package export

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/dgallion1/docsight/internal/flatten"
	"github.com/dgallion1/docsight/internal/parser"
	"github.com/go-pdf/fpdf"
	pdflib "github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type countingRecorder struct {
	kinds []string
}

func (r *countingRecorder) ExportFallback(kind string) { r.kinds = append(r.kinds, kind) }

func newTestExporter() (*Exporter, *countingRecorder) {
	rec := &countingRecorder{}
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), rec), rec
}

func decode(t *testing.T, data, declared string) *parser.Document {
	t.Helper()
	doc, err := parser.Decode(parser.Raw{Data: []byte(data), DeclaredType: declared})
	require.NoError(t, err)
	return doc
}

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestDocumentXLSX_Trades(t *testing.T) {
	e, rec := newTestExporter()
	doc := decode(t, `<root><trade id="1"><price>100</price></trade><trade id="2"><price>200</price></trade></root>`, "application/xml")

	f := openWorkbook(t, e.DocumentXLSX(doc, flatten.Options{}))
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"price", "trade id"},
		{"100", "1"},
		{"200", "2"},
	}, rows)
	assert.Empty(t, rec.kinds)
}

func TestDocumentXLSX_PadsMissingCells(t *testing.T) {
	e, _ := newTestExporter()
	doc := decode(t, `[{"a":1},{"a":2,"b":3}]`, "application/json")

	f := openWorkbook(t, e.DocumentXLSX(doc, flatten.Options{}))
	sheet := f.GetSheetName(0)

	want := map[string]string{
		"A1": "a", "B1": "b",
		"A2": "1", "B2": "",
		"A3": "2", "B3": "3",
	}
	for cell, v := range want {
		got, err := f.GetCellValue(sheet, cell)
		require.NoError(t, err)
		assert.Equal(t, v, got, "cell %s", cell)
	}
}

func TestDocumentXLSX_FallbackWorkbook(t *testing.T) {
	cases := map[string]struct {
		data, declared, msg string
	}{
		"scalar json": {"42", "application/json", "unsupported JSON shape for tabular export"},
		"plain text":  {"hello", "text/plain", "unsupported file type for Excel conversion"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			e, rec := newTestExporter()
			out := e.DocumentXLSX(decode(t, tc.data, tc.declared), flatten.Options{})
			require.NotEmpty(t, out)

			f := openWorkbook(t, out)
			sheet := f.GetSheetName(0)
			a1, err := f.GetCellValue(sheet, "A1")
			require.NoError(t, err)
			a2, err := f.GetCellValue(sheet, "A2")
			require.NoError(t, err)
			assert.Equal(t, FallbackTitle, a1)
			assert.Equal(t, tc.msg, a2)
			assert.Equal(t, []string{"xlsx"}, rec.kinds)
		})
	}
}

func TestXLSX_EmptyRowSet(t *testing.T) {
	e, rec := newTestExporter()
	f := openWorkbook(t, e.XLSX(flatten.RowSet{}))
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, rec.kinds)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, `Price: 5 EUR - "ok" it's... -done`, Sanitize("Price: 5 € — “ok” it’s… –done"))
	assert.Equal(t, "nave caf", Sanitize("naïve café"))
	assert.Equal(t, "", Sanitize("日本語"))
}

func charWidth(s string) float64 { return float64(len(s)) }

func TestWrap_GreedyWithinBudget(t *testing.T) {
	lines := Wrap("the quick brown fox jumps over the lazy dog", 12, charWidth)
	assert.Equal(t, []string{"the quick", "brown fox", "jumps over", "the lazy", "dog"}, lines)
	for _, l := range lines {
		assert.Less(t, charWidth(l), 12.0, l)
	}
}

func TestWrap_HardBreaksAndBlankLines(t *testing.T) {
	lines := Wrap("one two\n\n   \nthree", 100, charWidth)
	assert.Equal(t, []string{"one two", "three"}, lines)
}

func TestWrap_OversizedWordOnOwnLine(t *testing.T) {
	lines := Wrap("a supercalifragilistic b", 6, charWidth)
	assert.Equal(t, []string{"a", "supercalifragilistic", "b"}, lines)
}

func TestWrap_RealFontMetrics(t *testing.T) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)

	text := strings.Repeat("Quarterly revenue grew across every region despite currency headwinds. ", 12)
	lines := Wrap(text, WrapBudget, pdf.GetStringWidth)
	require.Greater(t, len(lines), 1)

	for _, l := range lines {
		assert.Less(t, pdf.GetStringWidth(l), WrapBudget, l)
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(lines, " ")))
}

// pdfRows returns the text of each printed row of the first page, top to
// bottom.
func pdfRows(t *testing.T, data []byte) []string {
	t.Helper()
	r, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	rows, err := r.Page(1).GetTextByRow()
	require.NoError(t, err)

	var out []string
	for _, row := range rows {
		var sb strings.Builder
		for _, txt := range row.Content {
			sb.WriteString(txt.S)
		}
		out = append(out, sb.String())
	}
	return out
}

func TestSummaryPDF_FallbackFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	e := New(slog.New(slog.NewTextHandler(&logs, nil)), nil)
	e.renderPDF = func(string, string) ([]byte, error) { return nil, errors.New("render broke") }
	e.renderFallbackPDF = func() ([]byte, error) { return nil, errors.New("output broke") }

	assert.Nil(t, e.SummaryPDF("x", "body"))
	assert.Contains(t, logs.String(), "render broke")
	assert.Contains(t, logs.String(), "fallback pdf")
	assert.Contains(t, logs.String(), "output broke")
}

func pdfText(t *testing.T, data []byte) string {
	t.Helper()
	r, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.GreaterOrEqual(t, r.NumPage(), 1)

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		text, err := r.Page(i).GetPlainText(nil)
		require.NoError(t, err)
		sb.WriteString(text)
	}
	return sb.String()
}

func TestSummaryPDF(t *testing.T) {
	e, rec := newTestExporter()
	out := e.SummaryPDF("report.xml", "## Overview\n\nTotal exposure is **12 €** across 3 trades.")

	require.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	text := pdfText(t, out)
	assert.Contains(t, text, "Summary of report.xml")
	assert.Contains(t, text, "## Overview")
	assert.Contains(t, text, "**12 EUR**")
	assert.Empty(t, rec.kinds)
}

func TestSummaryPDF_NewlinesAreHardBreaks(t *testing.T) {
	e, _ := newTestExporter()
	out := e.SummaryPDF("notes.txt", "Line one\nLine two\n1) first\n*x*")

	assert.Equal(t, []string{
		"Summary of notes.txt",
		"Line one",
		"Line two",
		"1) first",
		"*x*",
	}, pdfRows(t, out))
}

func TestSummaryPDF_PassesBodyUnchanged(t *testing.T) {
	e, _ := newTestExporter()
	var gotTitle, gotBody string
	e.renderPDF = func(title, body string) ([]byte, error) {
		gotTitle, gotBody = title, body
		return renderSummary(title, body)
	}

	body := "# Heading\na\nb"
	e.SummaryPDF("x.json", body)
	assert.Equal(t, "Summary of x.json", gotTitle)
	assert.Equal(t, body, gotBody)
}

func TestSummaryLines(t *testing.T) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)

	assert.Equal(t, []string{"a", "b"}, summaryLines("a\nb", pdf.GetStringWidth))
	assert.Equal(t, []string{"Price 5 EUR", "- done"}, summaryLines("Price 5 €\n— done", pdf.GetStringWidth))
}

func TestSummaryPDF_Fallback(t *testing.T) {
	for name, render := range map[string]func(string, string) ([]byte, error){
		"error": func(string, string) ([]byte, error) { return nil, errors.New("font missing") },
		"panic": func(string, string) ([]byte, error) { panic("bad state") },
	} {
		t.Run(name, func(t *testing.T) {
			e, rec := newTestExporter()
			e.renderPDF = render

			out := e.SummaryPDF("x", "body")
			require.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
			assert.Contains(t, pdfText(t, out), FallbackPDFTitle)
			assert.Equal(t, []string{"pdf"}, rec.kinds)
		})
	}
}
