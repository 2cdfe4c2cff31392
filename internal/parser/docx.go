package parser

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsight/internal/doctree"
	"github.com/fumiama/go-docx"
)

func isDOCX(declaredType, filename string) bool {
	if strings.Contains(strings.ToLower(declaredType), "docx") {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".docx")
}

// DOCXParser extracts paragraph text from a Word document. Paragraphs
// styled Heading1..Heading6 open outline sections.
type DOCXParser struct{}

// Parse returns the document's paragraphs joined by blank lines together
// with its heading outline.
func (p *DOCXParser) Parse(data []byte, title string) (string, *doctree.DocTree, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("parse docx: %w", err)
	}

	b := newOutlineBuilder()
	var paras []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		paras = append(paras, text)
		if level := docxHeadingLevel(para); level > 0 {
			b.heading(level, text)
		} else {
			b.text(text)
		}
	}
	return strings.Join(paras, "\n\n"), b.tree(title), nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	level, ok := strings.CutPrefix(style, "heading")
	if !ok || len(level) != 1 || level[0] < '1' || level[0] > '6' {
		return 0
	}
	return int(level[0] - '0')
}

func docxParagraphText(para *docx.Paragraph) string {
	var sb strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				sb.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(sb.String())
}
