// Package search locates query occurrences in a document. Every function is
// a pure function of the tree, the query and a cursor position; matching is
// case-insensitive and never crosses a text block boundary.
package search

import (
	"strings"
	"unicode"

	"github.com/dgallion1/ultratext/internal/doctree"
	"github.com/dgallion1/ultratext/internal/index"
)

// Match is a half-open position range [From, To).
type Match struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Len is the number of positions the match covers.
func (m Match) Len() int { return m.To - m.From }

// State is the caller-held find state. The engine keeps none of it between
// calls; the API hands it back after every find so a client can resume.
type State struct {
	Query string `json:"query"`
	// CaseSensitive round-trips the client's toggle. Matching never reads
	// it and is always case-insensitive.
	CaseSensitive bool `json:"case_sensitive"`
	Cursor        int  `json:"cursor"`
}

// Next runs FindNext with the state's query and cursor.
func (s State) Next(root *doctree.Node) (Match, bool) {
	return FindNext(root, s.Query, s.Cursor)
}

// Prev runs FindPrev with the state's query and cursor.
func (s State) Prev(root *doctree.Node) (Match, bool) {
	return FindPrev(root, s.Query, s.Cursor)
}

// After returns the state for the search that follows m: forward searches
// resume at its end, backward ones at its start.
func (s State) After(m Match, backward bool) State {
	if backward {
		s.Cursor = m.From
	} else {
		s.Cursor = m.To
	}
	return s
}

// Needle normalizes a query the way every search function does: trimmed and
// lowercased rune by rune. An empty result means nothing can match.
func Needle(query string) []rune {
	return fold([]rune(strings.TrimSpace(query)))
}

// Fold lowercases s rune by rune, keeping its length in runes.
func Fold(s string) string {
	return string(fold([]rune(s)))
}

// FindNext returns the first occurrence starting at or after cursor. When
// none exists it wraps around to the first occurrence in the document.
func FindNext(root *doctree.Node, query string, cursor int) (Match, bool) {
	if m, ok := FindForward(root, query, cursor); ok {
		return m, true
	}
	return FindForward(root, query, 0)
}

// FindForward is FindNext without the wrap-around.
func FindForward(root *doctree.Node, query string, cursor int) (Match, bool) {
	needle := Needle(query)
	if len(needle) == 0 {
		return Match{}, false
	}
	for b := range index.TextBlocks(root) {
		hay := fold([]rune(b.Text))
		if i := indexFrom(hay, needle, max(0, cursor-b.Start-1)); i >= 0 {
			return Match{From: b.Pos(i), To: b.Pos(i) + len(needle)}, true
		}
	}
	return Match{}, false
}

// FindPrev returns the last occurrence ending at or before cursor,
// overlapping occurrences included. When none exists it wraps around to the
// last occurrence in the document.
func FindPrev(root *doctree.Node, query string, cursor int) (Match, bool) {
	needle := Needle(query)
	if len(needle) == 0 {
		return Match{}, false
	}
	var (
		best, last  Match
		found, seen bool
	)
	for b := range index.TextBlocks(root) {
		hay := fold([]rune(b.Text))
		for i := indexFrom(hay, needle, 0); i >= 0; i = indexFrom(hay, needle, i+1) {
			m := Match{From: b.Pos(i), To: b.Pos(i) + len(needle)}
			last, seen = m, true
			if m.To <= cursor {
				best, found = m, true
			}
		}
	}
	if found {
		return best, true
	}
	return last, seen
}

// FindAll returns every non-overlapping occurrence in document order.
func FindAll(root *doctree.Node, query string) []Match {
	needle := Needle(query)
	if len(needle) == 0 {
		return nil
	}
	var out []Match
	for b := range index.TextBlocks(root) {
		hay := fold([]rune(b.Text))
		for i := indexFrom(hay, needle, 0); i >= 0; i = indexFrom(hay, needle, i+len(needle)) {
			out = append(out, Match{From: b.Pos(i), To: b.Pos(i) + len(needle)})
		}
	}
	return out
}

// fold lowercases in place. unicode.ToLower maps one rune to one rune, so
// offsets in the folded text are offsets in the original.
func fold(rs []rune) []rune {
	for i, r := range rs {
		rs[i] = unicode.ToLower(r)
	}
	return rs
}

func indexFrom(hay, needle []rune, from int) int {
	for i := from; i+len(needle) <= len(hay); i++ {
		if equalAt(hay, needle, i) {
			return i
		}
	}
	return -1
}

func equalAt(hay, needle []rune, at int) bool {
	for j, r := range needle {
		if hay[at+j] != r {
			return false
		}
	}
	return true
}
