package parser

import (
	"encoding/xml"
	"io"
	"slices"
	"strings"

	"github.com/beevik/etree"
	"github.com/dgallion1/docsight/internal/doctree"
)

// XMLResult is the normalized view of an XML document.
type XMLResult struct {
	Content   string           `json:"content"`
	Structure *doctree.Element `json:"structure"`
}

// NormalizeXML parses text into an element tree and renders it as indented
// text. Malformed XML is reported as a *DecodeError: unbalanced tags, text
// or a second element outside the root, unbound namespace prefixes and
// nesting deeper than maxNestingDepth.
func NormalizeXML(text string) (*XMLResult, error) {
	if err := checkNesting(text); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		return nil, xmlError(err.Error())
	}

	rootElem, err := documentRoot(doc)
	if err != nil {
		return nil, err
	}
	root, err := convertElement(rootElem, nil)
	if err != nil {
		return nil, err
	}
	return &XMLResult{
		Content:   RenderXML(root),
		Structure: root,
	}, nil
}

func xmlError(msg string) *DecodeError {
	return &DecodeError{Format: FormatXML, Offset: -1, Msg: "XML parsing error: " + msg}
}

// documentRoot returns the single root element. Only comments, processing
// instructions, directives and whitespace may surround it.
func documentRoot(doc *etree.Document) (*etree.Element, error) {
	var root *etree.Element
	for _, tok := range doc.Child {
		switch t := tok.(type) {
		case *etree.Element:
			if root != nil {
				return nil, xmlError("junk after document element")
			}
			root = t
		case *etree.CharData:
			if strings.TrimSpace(t.Data) == "" {
				continue
			}
			if root != nil {
				return nil, xmlError("junk after document element")
			}
			return nil, xmlError("syntax error: text before document element")
		}
	}
	if root == nil {
		return nil, xmlError("no element found")
	}
	return root, nil
}

// checkNesting streams the raw tokens and fails once elements nest deeper
// than maxNestingDepth, before any tree is built. Syntax errors are left to
// the full parse.
func checkNesting(text string) error {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }
	depth := 0
	for {
		tok, err := dec.RawToken()
		if err != nil {
			return nil
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
			if depth > maxNestingDepth {
				return &DecodeError{
					Format: FormatXML,
					Offset: dec.InputOffset(),
					Msg:    "XML parsing error: " + errNestingTooDeep.Error(),
				}
			}
		case xml.EndElement:
			depth--
		}
	}
}

// convertElement copies e into a doctree.Element. bound holds the namespace
// prefixes declared by e's ancestors.
func convertElement(e *etree.Element, bound []string) (*doctree.Element, error) {
	for _, a := range e.Attr {
		if a.Space == "xmlns" {
			bound = append(slices.Clip(bound), a.Key)
		}
	}
	if !prefixBound(e.Space, bound) {
		return nil, xmlError("unbound prefix " + e.Space + " on element " + e.FullTag())
	}

	out := doctree.NewElement(e.FullTag())
	for _, a := range e.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		if !prefixBound(a.Space, bound) {
			return nil, xmlError("unbound prefix " + a.Space + " on attribute " + a.FullKey())
		}
		out.Attributes[a.FullKey()] = a.Value
	}
	out.Text = strings.TrimSpace(charData(e.Child))
	if p := e.Parent(); p != nil {
		out.Tail = strings.TrimSpace(charData(p.Child[e.Index()+1:]))
	}

	for _, c := range e.ChildElements() {
		child, err := convertElement(c, bound)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, child)
	}
	return out, nil
}

func prefixBound(prefix string, bound []string) bool {
	return prefix == "" || prefix == "xml" || slices.Contains(bound, prefix)
}

// charData joins the character data at the start of toks, up to the next
// element. Comments and processing instructions do not end the run.
func charData(toks []etree.Token) string {
	var sb strings.Builder
	for _, tok := range toks {
		switch t := tok.(type) {
		case *etree.CharData:
			sb.WriteString(t.Data)
		case *etree.Element:
			return sb.String()
		}
	}
	return sb.String()
}

// RenderXML renders an element tree depth-first, one line per element,
// indented two spaces per level. A child's tail text follows that child's
// whole subtree, at the parent's indent.
func RenderXML(root *doctree.Element) string {
	var lines []string
	renderElement(root, 0, &lines)
	return strings.Join(lines, "\n")
}

func renderElement(e *doctree.Element, depth int, lines *[]string) {
	indent := strings.Repeat("  ", depth)
	if e.Text != "" {
		*lines = append(*lines, indent+e.Tag+": "+e.Text)
	} else {
		*lines = append(*lines, indent+e.Tag)
	}
	for _, c := range e.Children {
		renderElement(c, depth+1, lines)
		if c.Tail != "" {
			*lines = append(*lines, indent+c.Tail)
		}
	}
}
