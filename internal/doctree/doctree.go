package doctree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Node is one node of a structured document. Its JSON form is the canonical
// document encoding: {"type", "attrs", "content", "marks", "text"}.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []*Node        `json:"content,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Text    string         `json:"text,omitempty"`
}

// Mark is inline formatting attached to a text run.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

type kind int

const (
	kindBlock kind = iota
	kindText
	kindAtom       // block-level leaf
	kindInlineAtom // inline leaf
)

var nodeKinds = map[string]kind{
	"doc":            kindBlock,
	"paragraph":      kindBlock,
	"heading":        kindBlock,
	"blockquote":     kindBlock,
	"bulletList":     kindBlock,
	"orderedList":    kindBlock,
	"listItem":       kindBlock,
	"taskList":       kindBlock,
	"taskItem":       kindBlock,
	"codeBlock":      kindBlock,
	"table":          kindBlock,
	"tableRow":       kindBlock,
	"tableCell":      kindBlock,
	"tableHeader":    kindBlock,
	"math":           kindBlock,
	"text":           kindText,
	"image":          kindAtom,
	"horizontalRule": kindAtom,
	"iframe":         kindAtom,
	"hardBreak":      kindInlineAtom,
	"inlineMath":     kindInlineAtom,
}

// Block types that never own text directly; their children carry it.
var structuralOnly = map[string]bool{
	"doc":         true,
	"bulletList":  true,
	"orderedList": true,
	"taskList":    true,
	"table":       true,
	"tableRow":    true,
}

// KnownType reports whether typ is part of the document schema.
func KnownType(typ string) bool {
	_, ok := nodeKinds[typ]
	return ok
}

// IsText reports whether n is a text run.
func (n *Node) IsText() bool { return n.Type == "text" }

// IsAtom reports whether n is a leaf atom (image, rule, iframe, hard break, inline math).
func (n *Node) IsAtom() bool {
	k := nodeKinds[n.Type]
	return k == kindAtom || k == kindInlineAtom
}

// IsInline reports whether n lives inside a text block's inline content.
func (n *Node) IsInline() bool {
	k, ok := nodeKinds[n.Type]
	return ok && (k == kindText || k == kindInlineAtom)
}

// IsBlock reports whether n is a block node (atoms excluded).
func (n *Node) IsBlock() bool {
	k, ok := nodeKinds[n.Type]
	return ok && k == kindBlock
}

// IsTextblock reports whether n is a leaf with respect to block structure
// and can carry text runs.
func (n *Node) IsTextblock() bool {
	if !n.IsBlock() || structuralOnly[n.Type] {
		return false
	}
	for _, c := range n.Content {
		if !c.IsInline() {
			return false
		}
	}
	return true
}

// Size is the number of position units n occupies.
func (n *Node) Size() int {
	switch {
	case n.IsText():
		return utf8.RuneCountInString(n.Text)
	case n.IsAtom():
		return 1
	}
	return 2 + n.ContentSize()
}

// ContentSize is the size of n's children, excluding n's own boundaries.
func (n *Node) ContentSize() int {
	size := 0
	for _, c := range n.Content {
		size += c.Size()
	}
	return size
}

// Descendants calls fn for every node below n in document order with its
// position relative to the start of n's content. Returning false skips the
// node's children.
func (n *Node) Descendants(fn func(node *Node, pos int) bool) {
	walkChildren(n, 0, fn)
}

func walkChildren(n *Node, start int, fn func(*Node, int) bool) {
	pos := start
	for _, c := range n.Content {
		if fn(c, pos) && len(c.Content) > 0 {
			walkChildren(c, pos+1, fn)
		}
		pos += c.Size()
	}
}

// TextContent concatenates every descendant text run.
func (n *Node) TextContent() string {
	if n.IsText() {
		return n.Text
	}
	var buf bytes.Buffer
	n.Descendants(func(c *Node, _ int) bool {
		if c.IsText() {
			buf.WriteString(c.Text)
		}
		return true
	})
	return buf.String()
}

// ObjectReplacement stands in for an inline atom inside InlineText.
const ObjectReplacement = '\uFFFC'

// InlineText returns a text block's content with exactly one rune per
// position unit: hard breaks become "\n" and other inline atoms U+FFFC.
func (n *Node) InlineText() string {
	var buf bytes.Buffer
	for _, c := range n.Content {
		switch {
		case c.IsText():
			buf.WriteString(c.Text)
		case c.Type == "hardBreak":
			buf.WriteByte('\n')
		default:
			buf.WriteRune(ObjectReplacement)
		}
	}
	return buf.String()
}

// Attr returns the named attribute or nil.
func (n *Node) Attr(name string) any {
	if n.Attrs == nil {
		return nil
	}
	return n.Attrs[name]
}

// IntAttr reads a numeric attribute regardless of how it was decoded.
func (n *Node) IntAttr(name string, fallback int) int {
	switch v := n.Attr(name).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
	}
	return fallback
}

// StringAttr reads a string attribute.
func (n *Node) StringAttr(name string) string {
	s, _ := n.Attr(name).(string)
	return s
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Type:  n.Type,
		Attrs: cloneAttrs(n.Attrs),
		Text:  n.Text,
	}
	if len(n.Marks) > 0 {
		out.Marks = make([]Mark, len(n.Marks))
		for i, m := range n.Marks {
			out.Marks[i] = Mark{Type: m.Type, Attrs: cloneAttrs(m.Attrs)}
		}
	}
	if len(n.Content) > 0 {
		out.Content = make([]*Node, len(n.Content))
		for i, c := range n.Content {
			out.Content[i] = c.Clone()
		}
	}
	return out
}

func cloneAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

// Equal reports structural equality. Nil and empty collections are equal,
// and attribute values are compared by their JSON encoding so that decoded
// numbers match the ints they were encoded from.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Type != o.Type || n.Text != o.Text || !attrsEqual(n.Attrs, o.Attrs) {
		return false
	}
	if !MarksEqual(n.Marks, o.Marks) || len(n.Content) != len(o.Content) {
		return false
	}
	for i := range n.Content {
		if !n.Content[i].Equal(o.Content[i]) {
			return false
		}
	}
	return true
}

// MarksEqual compares two mark sets in order.
func MarksEqual(a, b []Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Equal compares mark type and attributes.
func (m Mark) Equal(o Mark) bool {
	return m.Type == o.Type && attrsEqual(m.Attrs, o.Attrs)
}

func attrsEqual(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}

// Validate checks n against the document schema.
func Validate(root *Node) error {
	if root == nil || root.Type != "doc" {
		return fmt.Errorf("%w: root node must be of type doc", ErrInvalidNode)
	}
	return validateNode(root, "doc")
}

func validateNode(n *Node, path string) error {
	if n == nil {
		return fmt.Errorf("%w: nil node at %s", ErrInvalidNode, path)
	}
	if !KnownType(n.Type) {
		return fmt.Errorf("%w: unknown node type %q at %s", ErrInvalidNode, n.Type, path)
	}
	switch {
	case n.IsText():
		if n.Text == "" {
			return fmt.Errorf("%w: empty text node at %s", ErrInvalidNode, path)
		}
		if len(n.Content) > 0 {
			return fmt.Errorf("%w: text node with children at %s", ErrInvalidNode, path)
		}
	case n.IsAtom():
		if len(n.Content) > 0 || n.Text != "" {
			return fmt.Errorf("%w: %s must be a leaf at %s", ErrInvalidNode, n.Type, path)
		}
	default:
		if n.Text != "" {
			return fmt.Errorf("%w: block %s carries text at %s", ErrInvalidNode, n.Type, path)
		}
		if n.Type == "doc" && path != "doc" {
			return fmt.Errorf("%w: nested doc at %s", ErrInvalidNode, path)
		}
		if err := validateChildKinds(n, path); err != nil {
			return err
		}
	}
	for i, c := range n.Content {
		if err := validateNode(c, fmt.Sprintf("%s.content[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// validateChildKinds keeps text reachable as text blocks: structural blocks
// hold no inline content, and no block mixes inline and block children.
func validateChildKinds(n *Node, path string) error {
	var inline, block bool
	for _, c := range n.Content {
		if c == nil || !KnownType(c.Type) {
			continue // reported by the child's own check
		}
		if c.IsInline() {
			inline = true
		} else {
			block = true
		}
	}
	if inline && structuralOnly[n.Type] {
		return fmt.Errorf("%w: %s cannot hold inline content at %s", ErrInvalidNode, n.Type, path)
	}
	if inline && block {
		return fmt.Errorf("%w: %s mixes inline and block content at %s", ErrInvalidNode, n.Type, path)
	}
	return nil
}

// NewDoc builds a document root.
func NewDoc(children ...*Node) *Node {
	return &Node{Type: "doc", Content: children}
}

// NewParagraph builds a paragraph.
func NewParagraph(children ...*Node) *Node {
	return &Node{Type: "paragraph", Content: children}
}

// NewHeading builds a heading of the given level.
func NewHeading(level int, children ...*Node) *Node {
	return &Node{Type: "heading", Attrs: map[string]any{"level": level}, Content: children}
}

// NewBlock builds any block node.
func NewBlock(typ string, attrs map[string]any, children ...*Node) *Node {
	return &Node{Type: typ, Attrs: attrs, Content: children}
}

// NewAtom builds a leaf atom.
func NewAtom(typ string, attrs map[string]any) *Node {
	return &Node{Type: typ, Attrs: attrs}
}

// NewText builds a text run.
func NewText(text string, marks ...Mark) *Node {
	return &Node{Type: "text", Text: text, Marks: marks}
}
