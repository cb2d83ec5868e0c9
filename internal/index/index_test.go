package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/ultratext/internal/doctree"
)

func TestTextBlocks(t *testing.T) {
	t.Run("Should yield leaf blocks with their opening positions", func(t *testing.T) {
		root := doctree.NewDoc(
			doctree.NewHeading(1, doctree.NewText("Title")),
			doctree.NewParagraph(doctree.NewText("ab"), doctree.NewAtom("hardBreak", nil), doctree.NewText("c")),
		)
		got := All(root)
		require.Len(t, got, 2)
		assert.Equal(t, TextBlock{Start: 0, Text: "Title"}, got[0])
		assert.Equal(t, TextBlock{Start: 7, Text: "ab\nc"}, got[1])
		assert.Equal(t, 12, got[1].End())
	})

	t.Run("Should descend into lists and tables", func(t *testing.T) {
		root := doctree.NewDoc(
			doctree.NewBlock("bulletList", nil,
				doctree.NewBlock("listItem", nil, doctree.NewParagraph(doctree.NewText("one"))),
			),
			doctree.NewBlock("table", nil, doctree.NewBlock("tableRow", nil,
				doctree.NewBlock("tableCell", nil, doctree.NewParagraph(doctree.NewText("x"))),
				doctree.NewBlock("tableCell", nil, doctree.NewParagraph(doctree.NewText("y"))),
			)),
		)
		got := All(root)
		require.Len(t, got, 3)
		// ul(0) li(1) p(2)
		assert.Equal(t, TextBlock{Start: 2, Text: "one"}, got[0])
		// list ends at 9; table(9) row(10) cell(11) p(12)
		assert.Equal(t, TextBlock{Start: 12, Text: "x"}, got[1])
		// p ends at 14, cell closes at 15; cell(16) p(17)
		assert.Equal(t, TextBlock{Start: 17, Text: "y"}, got[2])
	})

	t.Run("Should map inline atoms to one character each", func(t *testing.T) {
		root := doctree.NewDoc(doctree.NewParagraph(
			doctree.NewText("a"),
			doctree.NewAtom("inlineMath", map[string]any{"latex": "x^2"}),
			doctree.NewText("b"),
		))
		got := All(root)
		require.Len(t, got, 1)
		assert.Equal(t, "a\uFFFCb", got[0].Text)
		assert.Equal(t, 3, got[0].Pos(2))
	})

	t.Run("Should skip block atoms and keep empty blocks", func(t *testing.T) {
		root := doctree.NewDoc(
			doctree.NewAtom("image", map[string]any{"src": "a.png"}),
			doctree.NewParagraph(),
		)
		assert.Equal(t, []TextBlock{{Start: 1, Text: ""}}, All(root))
	})

	t.Run("Should yield nothing for an empty document", func(t *testing.T) {
		assert.Empty(t, All(doctree.NewDoc()))
		assert.Empty(t, All(nil))
	})

	t.Run("Should stop when the consumer breaks", func(t *testing.T) {
		root := doctree.NewDoc(
			doctree.NewParagraph(doctree.NewText("a")),
			doctree.NewParagraph(doctree.NewText("b")),
			doctree.NewParagraph(doctree.NewText("c")),
		)
		var seen []string
		for b := range TextBlocks(root) {
			seen = append(seen, b.Text)
			if len(seen) == 2 {
				break
			}
		}
		assert.Equal(t, []string{"a", "b"}, seen)
	})
}

func TestTextBlocks_Ordering(t *testing.T) {
	root := doctree.NewDoc(
		doctree.NewHeading(2, doctree.NewText("h")),
		doctree.NewBlock("blockquote", nil,
			doctree.NewParagraph(doctree.NewText("quoted text")),
			doctree.NewParagraph(),
		),
		doctree.NewBlock("orderedList", nil,
			doctree.NewBlock("listItem", nil,
				doctree.NewParagraph(doctree.NewText("a")),
				doctree.NewBlock("bulletList", nil,
					doctree.NewBlock("listItem", nil, doctree.NewParagraph(doctree.NewText("nested"))),
				),
			),
		),
		doctree.NewBlock("codeBlock", nil, doctree.NewText("code")),
	)
	blocks := All(root)
	require.Len(t, blocks, 6)
	for i := 1; i < len(blocks); i++ {
		prev, cur := blocks[i-1], blocks[i]
		assert.Less(t, prev.Start, cur.Start)
		assert.Less(t, prev.End(), cur.Start+1, "block %d overlaps block %d", i-1, i)
	}
}

func TestCount(t *testing.T) {
	root := doctree.NewDoc(
		doctree.NewParagraph(doctree.NewText("hello brave world")),
		doctree.NewParagraph(doctree.NewText("x"), doctree.NewAtom("inlineMath", nil)),
	)
	assert.Equal(t, Stats{Blocks: 2, Words: 4, Chars: 19}, Count(root))
	assert.Equal(t, 0, CountWords("   "))
	assert.Equal(t, 0, CountWords("\uFFFC"))
}
