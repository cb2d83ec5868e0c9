package doctree

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Selection is a half-open position range. From == To is a collapsed cursor.
type Selection struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Empty reports whether the selection is collapsed.
func (s Selection) Empty() bool { return s.From == s.To }

// Step is one undoable replacement.
type Step struct {
	From      int
	To        int
	Text      string
	Timestamp time.Time

	before    *Node
	after     *Node
	selBefore Selection
	selAfter  Selection
}

// Document owns a document tree together with the selection and the undo
// history. It is not safe for concurrent use.
type Document struct {
	root      *Node
	selection Selection
	undo      []*Step
	redo      []*Step
	listeners []func()
}

// New returns a document holding a single empty paragraph.
func New() *Document {
	return NewWithRoot(NewDoc(NewParagraph()))
}

// NewWithRoot returns a document that owns root.
func NewWithRoot(root *Node) *Document {
	if root == nil {
		root = NewDoc()
	}
	return &Document{root: root}
}

// Root returns the current tree. Callers must not mutate it and must not
// keep it across a mutation.
func (d *Document) Root() *Node { return d.root }

// ContentSize is the largest valid position.
func (d *Document) ContentSize() int { return d.root.ContentSize() }

// Selection returns the current selection.
func (d *Document) Selection() Selection { return d.selection }

// SetSelection moves the selection, clamping it to the document.
func (d *Document) SetSelection(sel Selection) {
	size := d.ContentSize()
	sel.From = clamp(sel.From, 0, size)
	sel.To = clamp(sel.To, 0, size)
	if sel.To < sel.From {
		sel.From, sel.To = sel.To, sel.From
	}
	d.selection = sel
}

// OnUpdate registers fn to run after every content mutation.
func (d *Document) OnUpdate(fn func()) {
	d.listeners = append(d.listeners, fn)
}

func (d *Document) emit() {
	for _, fn := range d.listeners {
		fn()
	}
}

// SetContent replaces the whole tree and clears the history. Listeners are
// only notified when emitUpdate is set.
func (d *Document) SetContent(root *Node, emitUpdate bool) {
	if root == nil {
		root = NewDoc(NewParagraph())
	}
	d.root = root
	d.undo = nil
	d.redo = nil
	d.selection = Selection{}
	if emitUpdate {
		d.emit()
	}
}

// TextBetween returns the text in [from, to). Text blocks and leaf nodes
// are separated by "\n".
func (d *Document) TextBetween(from, to int) (string, error) {
	size := d.ContentSize()
	if from < 0 || to > size || from > to {
		return "", fmt.Errorf("%w: [%d, %d) outside [0, %d]", ErrRangeInvalid, from, to, size)
	}
	var buf strings.Builder
	first := true
	d.root.Descendants(func(n *Node, pos int) bool {
		end := pos + n.Size()
		if end <= from || pos >= to {
			return false
		}
		switch {
		case n.IsText():
			runes := []rune(n.Text)
			start := max(from-pos, 0)
			stop := min(to-pos, len(runes))
			buf.WriteString(string(runes[start:stop]))
		case n.IsAtom():
			if pos >= from {
				buf.WriteByte('\n')
			}
		case n.IsTextblock():
			if pos >= from && !first && buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			first = false
		}
		return true
	})
	return buf.String(), nil
}

// ReplaceText replaces [from, to) with a plain text run as one undoable
// step. The range must lie inside a single text block. The inserted text
// takes the marks of the text it replaces, or of the text before from when
// nothing is replaced. On success the selection collapses
// to the end of the inserted text.
func (d *Document) ReplaceText(from, to int, text string) error {
	size := d.ContentSize()
	if from < 0 || to > size || from > to {
		return fmt.Errorf("%w: [%d, %d) outside [0, %d]", ErrRangeInvalid, from, to, size)
	}

	next := d.root.Clone()
	var (
		target *Node
		start  int
	)
	next.Descendants(func(n *Node, pos int) bool {
		if target != nil {
			return false
		}
		if n.IsTextblock() && pos < from && to <= pos+n.Size()-1 {
			target, start = n, pos+1
			return false
		}
		return !n.IsText()
	})
	if target == nil {
		return fmt.Errorf("%w: [%d, %d) is not inside one text block", ErrRangeInvalid, from, to)
	}

	target.Content = spliceInline(target.Content, from-start, to-start, text)

	step := &Step{
		From:      from,
		To:        to,
		Text:      text,
		Timestamp: time.Now(),
		before:    d.root,
		after:     next,
		selBefore: d.selection,
	}
	d.root = next
	cursor := from + utf8.RuneCountInString(text)
	d.selection = Selection{From: cursor, To: cursor}
	step.selAfter = d.selection

	d.undo = append(d.undo, step)
	d.redo = nil
	d.emit()
	return nil
}

// Undo reverts the most recent step.
func (d *Document) Undo() error {
	if len(d.undo) == 0 {
		return ErrNothingToUndo
	}
	step := d.undo[len(d.undo)-1]
	d.undo = d.undo[:len(d.undo)-1]
	d.root = step.before
	d.selection = step.selBefore
	d.redo = append(d.redo, step)
	d.emit()
	return nil
}

// Redo reapplies the most recently undone step.
func (d *Document) Redo() error {
	if len(d.redo) == 0 {
		return ErrNothingToRedo
	}
	step := d.redo[len(d.redo)-1]
	d.redo = d.redo[:len(d.redo)-1]
	d.root = step.after
	d.selection = step.selAfter
	d.undo = append(d.undo, step)
	d.emit()
	return nil
}

// History returns the undoable steps, oldest first.
func (d *Document) History() []*Step {
	out := make([]*Step, len(d.undo))
	copy(out, d.undo)
	return out
}

// inlineUnit is one position unit of a text block's inline content.
type inlineUnit struct {
	r     rune
	marks []Mark
	atom  *Node
}

func spliceInline(content []*Node, a, b int, text string) []*Node {
	var units []inlineUnit
	for _, c := range content {
		if c.IsText() {
			for _, r := range c.Text {
				units = append(units, inlineUnit{r: r, marks: c.Marks})
			}
			continue
		}
		units = append(units, inlineUnit{atom: c})
	}

	// A replaced range keeps its own marks; a plain insertion continues
	// the run before the cursor.
	var marks []Mark
	switch {
	case a < b && units[a].atom == nil:
		marks = units[a].marks
	case a > 0 && units[a-1].atom == nil:
		marks = units[a-1].marks
	case a < len(units) && units[a].atom == nil:
		marks = units[a].marks
	}

	out := make([]inlineUnit, 0, len(units)-(b-a)+len(text))
	out = append(out, units[:a]...)
	for _, r := range text {
		out = append(out, inlineUnit{r: r, marks: marks})
	}
	out = append(out, units[b:]...)
	return regroup(out)
}

func regroup(units []inlineUnit) []*Node {
	var (
		nodes []*Node
		buf   strings.Builder
		marks []Mark
		open  bool
	)
	flush := func() {
		if open && buf.Len() > 0 {
			nodes = append(nodes, NewText(buf.String(), marks...))
		}
		buf.Reset()
		open = false
	}
	for _, u := range units {
		if u.atom != nil {
			flush()
			nodes = append(nodes, u.atom)
			continue
		}
		if open && !MarksEqual(marks, u.marks) {
			flush()
		}
		if !open {
			marks, open = u.marks, true
		}
		buf.WriteRune(u.r)
	}
	flush()
	return nodes
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
