package doctree

import "strings"

// BlockSeparator joins text blocks in the plain-text projection.
const BlockSeparator = "\n\n"

// Text is the plain-text projection of root: every structure is stripped,
// text blocks are joined by BlockSeparator and hard breaks become "\n".
func Text(root *Node) string {
	var b strings.Builder
	first := true
	root.Descendants(func(n *Node, _ int) bool {
		switch {
		case n.IsTextblock():
			if !first {
				b.WriteString(BlockSeparator)
			}
			first = false
		case n.IsText():
			b.WriteString(n.Text)
		case n.Type == "hardBreak":
			b.WriteByte('\n')
		case n.Type == "inlineMath":
			b.WriteString(n.StringAttr("latex"))
		}
		return true
	})
	return b.String()
}
