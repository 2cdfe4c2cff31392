package parser

import (
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsight/internal/doctree"
	"golang.org/x/net/html"
)

func isHTML(declaredType, filename string) bool {
	if strings.Contains(strings.ToLower(declaredType), "html") {
		return true
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// HTMLParser outlines an HTML page by its h1-h6 headings, keeping the text
// of paragraphs, list items, cells and quotes. Scripts, styles and page
// chrome are skipped. Like markdown, only the outline is derived; the
// document content stays the raw markup.
type HTMLParser struct{}

func (p *HTMLParser) Parse(src, title string) *doctree.DocTree {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return (&TextParser{}).Parse(src, title)
	}

	b := newOutlineBuilder()
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				b.heading(level, textContent(n))
				return
			}
			switch n.Data {
			case "script", "style", "nav", "footer", "header", "head":
				return
			case "p", "li", "td", "th", "blockquote", "pre":
				b.text(textContent(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.tree(title)
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}
