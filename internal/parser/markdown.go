package parser

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsight/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// isMarkdown reports whether a text upload is markdown, by declared type or
// file extension.
func isMarkdown(declaredType, filename string) bool {
	if strings.Contains(strings.ToLower(declaredType), "markdown") {
		return true
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// MarkdownParser outlines markdown text by its headings. Only the outline
// follows the headings; the document content stays the raw text.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(src, title string) *doctree.DocTree {
	source := []byte(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	b := newOutlineBuilder()
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			b.heading(h.Level, blockText(h, source))
			continue
		}
		b.text(blockText(n, source))
	}
	return b.tree(title)
}

// blockText returns the source text of a block: its own lines for leaf
// blocks, its child blocks one per line for containers such as lists.
func blockText(n ast.Node, src []byte) string {
	if n.Type() != ast.TypeBlock {
		return ""
	}
	if lines := n.Lines(); lines.Len() > 0 {
		var buf bytes.Buffer
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			v := seg.Value(src)
			buf.Write(v)
			if !bytes.HasSuffix(v, []byte("\n")) {
				buf.WriteByte('\n')
			}
		}
		return strings.TrimSpace(buf.String())
	}

	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t := blockText(c, src); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
