package parser

import (
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsight/internal/doctree"
)

// Format is the decoding path chosen for an upload.
type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
	FormatText Format = "text"
)

// Document is the decoded form of an upload.
type Document struct {
	Format Format
	Title  string

	// Content is the human-readable rendering shown to the user and handed
	// to the language model.
	Content string

	XML  *doctree.Element // FormatXML only
	JSON *doctree.Value   // FormatJSON only

	// Outline splits the content into paragraphs or pages for prompt chunking.
	Outline *doctree.DocTree
}

// Structure returns the nested view of a structured document, or nil for
// PDF and plain text.
func (d *Document) Structure() any {
	switch {
	case d.XML != nil:
		return d.XML
	case d.JSON != nil:
		return d.JSON
	}
	return nil
}

// Detect picks the decoding path from a declared MIME/type string. The
// checks run in a fixed order and the first match wins, so a type naming
// both xml and json decodes as XML.
func Detect(declaredType string) Format {
	t := strings.ToLower(declaredType)
	switch {
	case strings.Contains(t, "xml"):
		return FormatXML
	case strings.Contains(t, "json"):
		return FormatJSON
	case strings.Contains(t, "pdf"):
		return FormatPDF
	default:
		return FormatText
	}
}

// Raw is an upload as received: bytes plus the declared content type.
type Raw struct {
	Data         []byte
	DeclaredType string
	Filename     string
}

// Decoder turns raw uploads into Documents.
type Decoder struct {
	// FallbackPdftotext shells out to pdftotext when the Go extractors fail.
	FallbackPdftotext bool
}

// Decode decodes raw using the default Decoder.
func Decode(raw Raw) (*Document, error) {
	return Decoder{}.Decode(raw)
}

// Decode routes raw by its declared type and decodes it. Malformed input
// yields a *DecodeError; the returned Document is nil whenever err is non-nil.
func (d Decoder) Decode(raw Raw) (*Document, error) {
	title := strings.TrimSuffix(raw.Filename, filepath.Ext(raw.Filename))

	format := Detect(raw.DeclaredType)
	if format == FormatPDF {
		pdf := &PDFParser{FallbackPdftotext: d.FallbackPdftotext}
		return pdf.Parse(raw.Data, title)
	}

	// A .docx that is not a readable Word archive decodes as plain text.
	if format == FormatText && isDOCX(raw.DeclaredType, raw.Filename) {
		if content, outline, err := (&DOCXParser{}).Parse(raw.Data, title); err == nil {
			return &Document{
				Format:  FormatText,
				Title:   title,
				Content: content,
				Outline: outline,
			}, nil
		}
	}

	text := decodeText(raw.Data)
	switch format {
	case FormatXML:
		res, err := NormalizeXML(text)
		if err != nil {
			return nil, err
		}
		return &Document{
			Format:  FormatXML,
			Title:   title,
			Content: res.Content,
			XML:     res.Structure,
			Outline: singleNode(title, res.Content),
		}, nil
	case FormatJSON:
		v, err := NormalizeJSON(text)
		if err != nil {
			return nil, err
		}
		content, err := RenderJSON(v)
		if err != nil {
			return nil, &DecodeError{Format: FormatJSON, Offset: -1, Msg: "JSON encoding error: " + err.Error()}
		}
		return &Document{
			Format:  FormatJSON,
			Title:   title,
			Content: content,
			JSON:    &v,
			Outline: singleNode(title, content),
		}, nil
	default:
		var outline *doctree.DocTree
		switch {
		case isMarkdown(raw.DeclaredType, raw.Filename):
			outline = (&MarkdownParser{}).Parse(text, title)
		case isHTML(raw.DeclaredType, raw.Filename):
			outline = (&HTMLParser{}).Parse(text, title)
		case isCSV(raw.DeclaredType, raw.Filename):
			outline = (&CSVParser{}).Parse(text, title)
		default:
			outline = (&TextParser{}).Parse(text, title)
		}
		return &Document{
			Format:  FormatText,
			Title:   title,
			Content: text,
			Outline: outline,
		}, nil
	}
}

// TypeForFile derives a declared type from a file extension the way a bare
// file upload does: "report.json" becomes "application/json".
func TypeForFile(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return "text/plain"
	}
	return "application/" + ext
}

func singleNode(title, text string) *doctree.DocTree {
	tree := &doctree.DocTree{Title: title}
	if strings.TrimSpace(text) != "" {
		tree.Children = []*doctree.DocNode{{Text: text}}
	}
	return tree
}
