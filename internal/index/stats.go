package index

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/ultratext/internal/doctree"
)

// Stats summarizes the text of a document for status lines.
type Stats struct {
	Blocks int `json:"blocks"`
	Words  int `json:"words"`
	Chars  int `json:"chars"`
}

// Count walks root once and tallies blocks, words and characters. Inline
// atoms count as one character but never as a word.
func Count(root *doctree.Node) Stats {
	var s Stats
	for b := range TextBlocks(root) {
		s.Blocks++
		s.Chars += utf8.RuneCountInString(b.Text)
		s.Words += CountWords(b.Text)
	}
	return s
}

// CountWords counts whitespace-separated words, ignoring object replacement
// characters standing in for inline atoms.
func CountWords(text string) int {
	if text == "" {
		return 0
	}
	n := 0
	for _, f := range strings.Fields(text) {
		if strings.Trim(f, string(doctree.ObjectReplacement)) != "" {
			n++
		}
	}
	return n
}
