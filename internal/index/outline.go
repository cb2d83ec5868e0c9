package index

import (
	"strings"

	"github.com/dgallion1/ultratext/internal/doctree"
)

// Section is the stretch of a document that a heading introduces. It runs
// from the heading to the next heading of the same or a higher level.
type Section struct {
	Level      int      `json:"level"`
	Title      string   `json:"title"`
	Breadcrumb []string `json:"breadcrumb"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Words      int      `json:"words"`
}

// Outline lists the heading sections of root in document order.
func Outline(root *doctree.Node) []Section {
	type crumb struct {
		level int
		title string
	}
	var (
		sections []Section
		stack    []crumb
	)
	root.Descendants(func(n *doctree.Node, pos int) bool {
		if n.Type != "heading" {
			return !n.IsTextblock()
		}
		level := n.IntAttr("level", 1)
		title := strings.TrimSpace(n.TextContent())
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, crumb{level, title})

		bc := make([]string, len(stack))
		for i, c := range stack {
			bc[i] = c.title
		}
		sections = append(sections, Section{Level: level, Title: title, Breadcrumb: bc, Start: pos})
		return false
	})

	size := root.ContentSize()
	for i := range sections {
		sections[i].End = size
		for _, next := range sections[i+1:] {
			if next.Level <= sections[i].Level {
				sections[i].End = next.Start
				break
			}
		}
	}

	for b := range TextBlocks(root) {
		for i := range sections {
			if b.Start > sections[i].Start && b.Start < sections[i].End {
				sections[i].Words += CountWords(b.Text)
			}
		}
	}
	return sections
}
