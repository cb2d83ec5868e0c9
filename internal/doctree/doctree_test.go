package doctree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_Size(t *testing.T) {
	t.Run("Should count boundaries, characters and atoms", func(t *testing.T) {
		root := NewDoc(
			NewParagraph(NewText("ab")),
			NewAtom("horizontalRule", nil),
			NewParagraph(NewText("c"), NewAtom("hardBreak", nil), NewText("dé")),
		)
		assert.Equal(t, 4+1+6, root.ContentSize())
	})

	t.Run("Should report positions in document order", func(t *testing.T) {
		root := NewDoc(NewParagraph(NewText("ab")), NewParagraph(NewText("cd")))
		var got []int
		root.Descendants(func(n *Node, pos int) bool {
			got = append(got, pos)
			return true
		})
		assert.Equal(t, []int{0, 1, 4, 5}, got)
	})
}

func TestNode_IsTextblock(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		want bool
	}{
		{"paragraph", NewParagraph(NewText("x")), true},
		{"empty paragraph", NewParagraph(), true},
		{"cell with text", NewBlock("tableCell", nil, NewText("x")), true},
		{"cell with paragraph", NewBlock("tableCell", nil, NewParagraph(NewText("x"))), false},
		{"table row", NewBlock("tableRow", nil), false},
		{"image", NewAtom("image", nil), false},
		{"bullet list", NewBlock("bulletList", nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.node.IsTextblock())
		})
	}
}

func TestNode_InlineText(t *testing.T) {
	p := NewParagraph(NewText("a"), NewAtom("hardBreak", nil), NewText("b"), NewAtom("inlineMath", map[string]any{"latex": "x"}))
	assert.Equal(t, "a\nb\uFFFC", p.InlineText())
	assert.Equal(t, "ab", p.TextContent())
}

func TestNode_Equal(t *testing.T) {
	t.Run("Should treat nil and empty collections as equal", func(t *testing.T) {
		a := &Node{Type: "paragraph", Attrs: map[string]any{}, Content: []*Node{}}
		b := &Node{Type: "paragraph"}
		assert.True(t, a.Equal(b))
	})

	t.Run("Should compare numeric attributes by value", func(t *testing.T) {
		a := NewHeading(2, NewText("x"))
		b := &Node{Type: "heading", Attrs: map[string]any{"level": float64(2)}, Content: []*Node{NewText("x")}}
		assert.True(t, a.Equal(b))
	})

	t.Run("Should detect differing marks", func(t *testing.T) {
		a := NewText("x", Mark{Type: "bold"})
		b := NewText("x", Mark{Type: "italic"})
		assert.False(t, a.Equal(b))
	})
}

func TestValidate(t *testing.T) {
	t.Run("Should accept a well-formed document", func(t *testing.T) {
		require.NoError(t, Validate(NewDoc(NewParagraph(NewText("x")))))
	})

	t.Run("Should accept inline-only cells and block atoms between blocks", func(t *testing.T) {
		root := NewDoc(
			NewBlock("table", nil, NewBlock("tableRow", nil, NewBlock("tableCell", nil, NewText("c")))),
			NewAtom("image", map[string]any{"src": "a.png"}),
			NewParagraph(),
		)
		require.NoError(t, Validate(root))
	})

	t.Run("Should reject bad trees", func(t *testing.T) {
		bad := []*Node{
			nil,
			NewParagraph(),
			NewDoc(&Node{Type: "widget"}),
			NewDoc(NewParagraph(&Node{Type: "text"})),
			NewDoc(NewParagraph(&Node{Type: "text", Text: "x", Content: []*Node{NewText("y")}})),
			NewDoc(&Node{Type: "image", Content: []*Node{NewText("y")}}),
			NewDoc(NewDoc()),
			NewDoc(NewText("loose")),
			NewDoc(NewBlock("bulletList", nil, NewAtom("hardBreak", nil))),
			NewDoc(NewParagraph(NewText("hello"), NewAtom("image", map[string]any{"src": "a.png"}))),
			NewDoc(NewBlock("listItem", nil, NewText("a"), NewParagraph(NewText("b")))),
		}
		for i, root := range bad {
			err := Validate(root)
			assert.ErrorIs(t, err, ErrInvalidNode, "case %d", i)
		}
	})
}

func TestDocument_ReplaceText(t *testing.T) {
	t.Run("Should replace inside a block and keep marks", func(t *testing.T) {
		doc := NewWithRoot(NewDoc(NewParagraph(NewText("hello "), NewText("world", Mark{Type: "bold"}))))
		require.NoError(t, doc.ReplaceText(7, 12, "there"))

		p := doc.Root().Content[0]
		require.Len(t, p.Content, 2)
		assert.Equal(t, "hello ", p.Content[0].Text)
		assert.Equal(t, "there", p.Content[1].Text)
		assert.Equal(t, "bold", p.Content[1].Marks[0].Type)
		assert.Equal(t, Selection{From: 12, To: 12}, doc.Selection())
	})

	t.Run("Should delete when the text is empty", func(t *testing.T) {
		doc := NewWithRoot(NewDoc(NewParagraph(NewText("abc"))))
		require.NoError(t, doc.ReplaceText(1, 4, ""))
		assert.Empty(t, doc.Root().Content[0].Content)
		assert.Equal(t, 2, doc.ContentSize())
	})

	t.Run("Should merge runs with the same marks", func(t *testing.T) {
		doc := NewWithRoot(NewDoc(NewParagraph(NewText("ab"), NewText("X", Mark{Type: "bold"}), NewText("cd"))))
		require.NoError(t, doc.ReplaceText(3, 4, ""))
		p := doc.Root().Content[0]
		require.Len(t, p.Content, 1)
		assert.Equal(t, "abcd", p.Content[0].Text)
	})

	t.Run("Should continue the preceding run on insertion", func(t *testing.T) {
		doc := NewWithRoot(NewDoc(NewParagraph(NewText("ab", Mark{Type: "italic"}), NewText("cd"))))
		require.NoError(t, doc.ReplaceText(3, 3, "!"))
		p := doc.Root().Content[0]
		require.Len(t, p.Content, 2)
		assert.Equal(t, "ab!", p.Content[0].Text)
	})

	t.Run("Should reject a range crossing blocks", func(t *testing.T) {
		doc := NewWithRoot(NewDoc(NewParagraph(NewText("ab")), NewParagraph(NewText("cd"))))
		err := doc.ReplaceText(2, 6, "x")
		assert.ErrorIs(t, err, ErrRangeInvalid)
		assert.Equal(t, "ab", doc.Root().Content[0].TextContent())
	})

	t.Run("Should reject an out of bounds range", func(t *testing.T) {
		doc := NewWithRoot(NewDoc(NewParagraph(NewText("ab"))))
		assert.ErrorIs(t, doc.ReplaceText(3, 9, "x"), ErrRangeInvalid)
	})

	t.Run("Should notify listeners once per step", func(t *testing.T) {
		doc := NewWithRoot(NewDoc(NewParagraph(NewText("ab"))))
		calls := 0
		doc.OnUpdate(func() { calls++ })
		require.NoError(t, doc.ReplaceText(1, 2, "z"))
		require.NoError(t, doc.ReplaceText(2, 3, "y"))
		assert.Equal(t, 2, calls)
	})
}

func TestDocument_UndoRedo(t *testing.T) {
	doc := NewWithRoot(NewDoc(NewParagraph(NewText("cat cat"))))
	require.NoError(t, doc.ReplaceText(1, 4, "dog"))
	require.NoError(t, doc.ReplaceText(5, 8, "dog"))
	assert.Equal(t, "dog dog", Text(doc.Root()))
	assert.Len(t, doc.History(), 2)

	require.NoError(t, doc.Undo())
	assert.Equal(t, "dog cat", Text(doc.Root()))
	require.NoError(t, doc.Undo())
	assert.Equal(t, "cat cat", Text(doc.Root()))
	assert.ErrorIs(t, doc.Undo(), ErrNothingToUndo)

	require.NoError(t, doc.Redo())
	assert.Equal(t, "dog cat", Text(doc.Root()))

	require.NoError(t, doc.ReplaceText(1, 2, "f"))
	assert.ErrorIs(t, doc.Redo(), ErrNothingToRedo)
}

func TestDocument_TextBetween(t *testing.T) {
	doc := NewWithRoot(NewDoc(NewParagraph(NewText("alpha")), NewParagraph(NewText("beta"))))

	got, err := doc.TextBetween(1, 6)
	require.NoError(t, err)
	assert.Equal(t, "alpha", got)

	got, err = doc.TextBetween(3, 11)
	require.NoError(t, err)
	assert.Equal(t, "pha\nbet", got)

	got, err = doc.TextBetween(4, 4)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = doc.TextBetween(5, 2)
	assert.ErrorIs(t, err, ErrRangeInvalid)
}

func TestDocument_SetContent(t *testing.T) {
	doc := New()
	dirty := false
	doc.OnUpdate(func() { dirty = true })

	doc.SetContent(NewDoc(NewParagraph(NewText("x"))), false)
	assert.False(t, dirty)
	assert.Equal(t, "x", Text(doc.Root()))
	assert.ErrorIs(t, doc.Undo(), ErrNothingToUndo)

	doc.SetContent(nil, true)
	assert.True(t, dirty)
	assert.Equal(t, 2, doc.ContentSize())
}

func TestDocument_SetSelection(t *testing.T) {
	doc := NewWithRoot(NewDoc(NewParagraph(NewText("abc"))))
	doc.SetSelection(Selection{From: 9, To: -3})
	assert.Equal(t, Selection{From: 0, To: 5}, doc.Selection())
}

func TestText(t *testing.T) {
	root := NewDoc(
		NewHeading(1, NewText("Title")),
		NewParagraph(NewText("line one"), NewAtom("hardBreak", nil), NewText("line two")),
		NewAtom("image", map[string]any{"src": "a.png"}),
		NewBlock("bulletList", nil, NewBlock("listItem", nil, NewParagraph(NewText("item")))),
	)
	assert.Equal(t, "Title\n\nline one\nline two\n\nitem", Text(root))
	assert.Empty(t, Text(NewDoc()))
}
