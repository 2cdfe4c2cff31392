package parser

import (
	"strings"

	"github.com/dgallion1/docsight/internal/doctree"
)

// TextParser splits plain text into paragraphs at blank lines.
type TextParser struct{}

func (p *TextParser) Parse(text, title string) *doctree.DocTree {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	tree := &doctree.DocTree{Title: title}
	var current []string
	flush := func() {
		if len(current) > 0 {
			tree.Children = append(tree.Children, &doctree.DocNode{Text: strings.Join(current, "\n")})
			current = current[:0]
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return tree
}
