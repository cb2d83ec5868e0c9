package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/ultratext/internal/doctree"
)

// maxDOCXHeading is the deepest heading level kept; deeper headings are
// clamped to it.
const maxDOCXHeading = 3

// DOCXParser handles .docx files: headings, paragraphs with basic run
// formatting, and tables.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	root := doctree.NewDoc()
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			if block := docxParagraph(it); block != nil {
				root.Content = append(root.Content, block)
			}
		case *docx.Table:
			if table := docxTable(it); table != nil {
				root.Content = append(root.Content, table)
			}
		}
	}
	return ensureBlock(root), nil
}

// docxParagraph converts one paragraph. Empty body paragraphs are dropped;
// they are spacing in Word, not content.
func docxParagraph(para *docx.Paragraph) *doctree.Node {
	content := docxInline(para)
	if len(content) == 0 {
		return nil
	}
	if level := docxHeadingLevel(para); level > 0 {
		return doctree.NewHeading(min(level, maxDOCXHeading), content...)
	}
	return doctree.NewParagraph(content...)
}

func docxTable(t *docx.Table) *doctree.Node {
	table := doctree.NewBlock("table", nil)
	for _, tr := range t.TableRows {
		row := doctree.NewBlock("tableRow", nil)
		for _, tc := range tr.TableCells {
			cell := doctree.NewBlock("tableCell", nil)
			for _, para := range tc.Paragraphs {
				cell.Content = append(cell.Content, doctree.NewParagraph(docxInline(para)...))
			}
			if len(cell.Content) == 0 {
				cell.Content = []*doctree.Node{doctree.NewParagraph()}
			}
			row.Content = append(row.Content, cell)
		}
		if len(row.Content) > 0 {
			table.Content = append(table.Content, row)
		}
	}
	if len(table.Content) == 0 {
		return nil
	}
	return table
}

func docxInline(para *docx.Paragraph) []*doctree.Node {
	var out []*doctree.Node
	for _, child := range para.Children {
		switch c := child.(type) {
		case *docx.Run:
			out = appendRun(out, c)
		case *docx.Hyperlink:
			out = appendRun(out, &c.Run)
		}
	}
	return trimInline(out)
}

func appendRun(out []*doctree.Node, run *docx.Run) []*doctree.Node {
	marks := docxMarks(run.RunProperties)
	for _, rc := range run.Children {
		switch c := rc.(type) {
		case *docx.Text:
			if c.Text == "" {
				continue
			}
			if n := len(out); n > 0 && out[n-1].IsText() && doctree.MarksEqual(out[n-1].Marks, marks) {
				out[n-1] = doctree.NewText(out[n-1].Text+c.Text, marks...)
				continue
			}
			out = append(out, doctree.NewText(c.Text, marks...))
		case *docx.Tab:
			out = append(out, doctree.NewText("\t", marks...))
		case *docx.BarterRabbet:
			out = append(out, doctree.NewAtom("hardBreak", nil))
		}
	}
	return out
}

func docxMarks(props *docx.RunProperties) []doctree.Mark {
	if props == nil {
		return nil
	}
	var marks []doctree.Mark
	if props.Bold != nil {
		marks = append(marks, doctree.Mark{Type: "bold"})
	}
	if props.Italic != nil {
		marks = append(marks, doctree.Mark{Type: "italic"})
	}
	if props.Underline != nil && props.Underline.Val != "none" {
		marks = append(marks, doctree.Mark{Type: "underline"})
	}
	if props.Strike != nil && props.Strike.Val != "false" && props.Strike.Val != "0" {
		marks = append(marks, doctree.Mark{Type: "strike"})
	}
	return marks
}

// trimInline strips leading and trailing whitespace from the run sequence.
func trimInline(content []*doctree.Node) []*doctree.Node {
	for len(content) > 0 && content[0].IsText() {
		t := strings.TrimLeft(content[0].Text, " \t")
		if t != "" {
			content[0] = doctree.NewText(t, content[0].Marks...)
			break
		}
		content = content[1:]
	}
	for len(content) > 0 && content[len(content)-1].IsText() {
		last := content[len(content)-1]
		t := strings.TrimRight(last.Text, " \t")
		if t != "" {
			content[len(content)-1] = doctree.NewText(t, last.Marks...)
			break
		}
		content = content[:len(content)-1]
	}
	return content
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if style == "title" {
		return 1
	}
	if rest, ok := strings.CutPrefix(style, "heading"); ok && len(rest) == 1 && rest[0] >= '1' && rest[0] <= '9' {
		return int(rest[0] - '0')
	}
	return 0
}
