package parser

import (
	"strings"

	"github.com/dgallion1/docsight/internal/doctree"
)

type openSection struct {
	node  *doctree.DocNode
	level int
}

// outlineBuilder nests sections by heading level and attaches body text to
// the innermost open section. Text before the first heading becomes an
// untitled leading node.
type outlineBuilder struct {
	root    doctree.DocNode
	stack   []openSection
	pending []string
}

func newOutlineBuilder() *outlineBuilder {
	b := &outlineBuilder{}
	b.stack = []openSection{{node: &b.root, level: 0}}
	return b
}

func (b *outlineBuilder) text(t string) {
	if t = strings.TrimSpace(t); t != "" {
		b.pending = append(b.pending, t)
	}
}

func (b *outlineBuilder) heading(level int, title string) {
	b.flush()
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	section := &doctree.DocNode{Title: strings.TrimSpace(title)}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, section)
	b.stack = append(b.stack, openSection{node: section, level: level})
}

func (b *outlineBuilder) flush() {
	if len(b.pending) == 0 {
		return
	}
	top := b.stack[len(b.stack)-1].node
	body := strings.Join(b.pending, "\n\n")
	if top.Text != "" {
		top.Text += "\n\n" + body
	} else {
		top.Text = body
	}
	b.pending = b.pending[:0]
}

func (b *outlineBuilder) tree(title string) *doctree.DocTree {
	b.flush()
	tree := &doctree.DocTree{Title: title}
	if b.root.Text != "" {
		tree.Children = append(tree.Children, &doctree.DocNode{Text: b.root.Text})
	}
	tree.Children = append(tree.Children, b.root.Children...)
	return tree
}
