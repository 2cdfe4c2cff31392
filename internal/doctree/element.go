package doctree

// Element is one node of a decoded XML document.
//
// Tail holds the character data that follows the element's end tag inside
// its parent. It takes part in the text rendering but not in the structural
// view, so it is not serialized.
type Element struct {
	Tag        string            `json:"tag"`
	Attributes map[string]string `json:"attributes"`
	Text       string            `json:"text,omitempty"`
	Children   []*Element        `json:"children,omitempty"`
	Tail       string            `json:"-"`
}

// NewElement returns an element with an empty, non-nil attribute map.
func NewElement(tag string) *Element {
	return &Element{Tag: tag, Attributes: map[string]string{}}
}

// Append adds children in document order and returns e.
func (e *Element) Append(children ...*Element) *Element {
	e.Children = append(e.Children, children...)
	return e
}
