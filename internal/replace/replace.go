// Package replace performs position-safe replacements on top of search.
package replace

import (
	"fmt"
	"unicode/utf8"

	"github.com/dgallion1/ultratext/internal/doctree"
	"github.com/dgallion1/ultratext/internal/search"
)

// Editor is the slice of the document engine replacements need.
// *doctree.Document satisfies it.
type Editor interface {
	Root() *doctree.Node
	Selection() doctree.Selection
	SetSelection(doctree.Selection)
	TextBetween(from, to int) (string, error)
	ReplaceText(from, to int, text string) error
}

// ReplaceCurrent replaces the selection when it holds the query, then moves
// the selection to the next occurrence, which it returns. When the
// selection does not hold the query the next occurrence is selected and
// replaced instead. Nothing happens when the query occurs nowhere.
func ReplaceCurrent(ed Editor, query, replacement string) (search.Match, bool, error) {
	needle := string(search.Needle(query))
	if needle == "" {
		return search.Match{}, false, nil
	}

	for attempt := 0; attempt < 2; attempt++ {
		sel := ed.Selection()
		if !sel.Empty() {
			selected, err := ed.TextBetween(sel.From, sel.To)
			if err != nil {
				return search.Match{}, false, fmt.Errorf("read selection: %w", err)
			}
			if search.Fold(selected) == needle {
				if err := ed.ReplaceText(sel.From, sel.To, replacement); err != nil {
					return search.Match{}, false, fmt.Errorf("replace [%d, %d): %w", sel.From, sel.To, err)
				}
				next, ok := search.FindNext(ed.Root(), query, ed.Selection().To)
				if ok {
					ed.SetSelection(doctree.Selection{From: next.From, To: next.To})
				}
				return next, ok, nil
			}
		}
		if attempt > 0 {
			break
		}
		m, ok := search.FindNext(ed.Root(), query, sel.To)
		if !ok {
			return search.Match{}, false, nil
		}
		ed.SetSelection(doctree.Selection{From: m.From, To: m.To})
	}
	return search.Match{}, false, nil
}

// ReplaceAll replaces every occurrence of query in one forward pass and
// returns how many were replaced. Each replacement is its own undoable step.
// The scan resumes after the inserted text, so a replacement containing the
// query is never matched again.
func ReplaceAll(ed Editor, query, replacement string) (int, error) {
	if len(search.Needle(query)) == 0 {
		return 0, nil
	}
	step := utf8.RuneCountInString(replacement)
	count := 0
	pos := 0
	for {
		m, ok := search.FindForward(ed.Root(), query, pos)
		if !ok {
			return count, nil
		}
		if err := ed.ReplaceText(m.From, m.To, replacement); err != nil {
			return count, fmt.Errorf("replace [%d, %d): %w", m.From, m.To, err)
		}
		count++
		pos = m.From + step
	}
}
