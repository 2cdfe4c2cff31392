package doctree

import "strings"

// DocTree is the prose outline of a decoded document: paragraphs for plain
// text, pages for PDF, a single node for structured formats.
type DocTree struct {
	Title    string     // Document title (from filename)
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document outline.
type DocNode struct {
	Title    string     // Section label, e.g. "Page 3" (empty for plain paragraphs)
	Text     string     // Text content of this node
	Page     int        // Source page (0 if N/A)
	Children []*DocNode // Subsections
}

// Chunk is a sized text segment with structural context, ready for a prompt.
type Chunk struct {
	Text       string   // Chunk text content
	Index      int      // Sequence number within document
	Breadcrumb []string // Section labels leading to this chunk, e.g. ["Page 3"]
	PageStart  int
	PageEnd    int
}

// Text joins the text of every node in pre-order, one node per line.
func (t *DocTree) Text() string {
	if t == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(nodes []*DocNode)
	walk = func(nodes []*DocNode) {
		for _, n := range nodes {
			if n.Text != "" {
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(n.Text)
			}
			walk(n.Children)
		}
	}
	walk(t.Children)
	return sb.String()
}
