package doctree

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var whitespaceRun = regexp.MustCompile(`[ \t\r\n\f]+`)

// Elements that start a new block when met inside inline content.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Pre: true,
	atom.Table: true, atom.Hr: true, atom.Iframe: true, atom.Div: true, atom.Section: true,
	atom.Article: true, atom.Main: true, atom.Aside: true, atom.Figure: true, atom.Header: true,
	atom.Footer: true, atom.Nav: true, atom.Dl: true, atom.Dd: true, atom.Dt: true,
	atom.Address: true, atom.Details: true, atom.Summary: true, atom.Form: true, atom.Img: true,
}

// Elements whose content is never imported.
var skippedElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Head: true, atom.Title: true,
	atom.Template: true, atom.Noscript: true,
}

// FromHTML builds a document from an HTML string. Inline content found
// outside a text block is wrapped in a paragraph and whitespace is collapsed
// outside pre elements. The result is never empty: a blank input yields a
// single empty paragraph.
func FromHTML(src string) (*Node, error) {
	dom, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, err
	}
	body := findElement(dom, atom.Body)
	if body == nil {
		body = dom
	}
	return FromHTMLNode(body), nil
}

// FromHTMLNode converts an already-parsed element's children into a document.
func FromHTMLNode(container *html.Node) *Node {
	im := &htmlImporter{}
	doc := NewDoc(im.blocks(container, nil)...)
	if len(doc.Content) == 0 {
		doc.Content = []*Node{NewParagraph()}
	}
	return doc
}

type htmlImporter struct{}

// blocks converts the children of a block container.
func (im *htmlImporter) blocks(parent *html.Node, marks []Mark) []*Node {
	var (
		out     []*Node
		pending []*Node
	)
	flush := func() {
		if para := im.paragraph(pending); para != nil {
			out = append(out, para...)
		}
		pending = nil
	}
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && skippedElements[c.DataAtom] {
			continue
		}
		if c.Type == html.ElementNode && (blockElements[c.DataAtom] || containsBlock(c)) {
			flush()
			out = append(out, im.block(c, marks)...)
			continue
		}
		pending = append(pending, im.inline(c, marks)...)
	}
	flush()
	return out
}

// paragraph wraps loose inline content. Whitespace-only runs are dropped and
// block atoms split the paragraph around them.
func (im *htmlImporter) paragraph(inline []*Node) []*Node {
	content := normalizeInline(inline)
	if len(content) == 0 {
		return nil
	}
	return splitBlockAtoms("paragraph", nil, content)
}

func (im *htmlImporter) block(el *html.Node, marks []Mark) []*Node {
	switch el.DataAtom {
	case atom.P:
		return im.textblock("paragraph", nil, el, marks)
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(el.Data[1] - '0')
		return im.textblock("heading", map[string]any{"level": level}, el, marks)
	case atom.Blockquote:
		return []*Node{im.container("blockquote", nil, el, marks)}
	case atom.Ul:
		if attr(el, "data-type") == "taskList" || hasCheckboxItems(el) {
			return []*Node{im.list("taskList", nil, el, marks)}
		}
		return []*Node{im.list("bulletList", nil, el, marks)}
	case atom.Ol:
		var attrs map[string]any
		if start, err := strconv.Atoi(attr(el, "start")); err == nil && start != 1 {
			attrs = map[string]any{"start": start}
		}
		return []*Node{im.list("orderedList", attrs, el, marks)}
	case atom.Li:
		return []*Node{im.container("listItem", nil, el, marks)}
	case atom.Pre:
		return []*Node{im.codeBlock(el)}
	case atom.Table:
		return []*Node{im.table(el, marks)}
	case atom.Hr:
		return []*Node{NewAtom("horizontalRule", nil)}
	case atom.Img:
		return []*Node{imageNode(el)}
	case atom.Iframe:
		return []*Node{NewAtom("iframe", map[string]any{"src": attr(el, "src")})}
	case atom.Div:
		if attr(el, "data-type") == "math" {
			return im.textblock("math", nil, el, nil)
		}
	}
	return im.blocks(el, marks)
}

func (im *htmlImporter) textblock(typ string, attrs map[string]any, el *html.Node, marks []Mark) []*Node {
	if containsBlock(el) {
		return im.blocks(el, marks)
	}
	var inline []*Node
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		inline = append(inline, im.inline(c, marks)...)
	}
	content := normalizeInline(inline)
	if len(content) == 0 {
		return []*Node{NewBlock(typ, attrs)}
	}
	return splitBlockAtoms(typ, attrs, content)
}

func (im *htmlImporter) container(typ string, attrs map[string]any, el *html.Node, marks []Mark) *Node {
	children := im.blocks(el, marks)
	if len(children) == 0 {
		children = []*Node{NewParagraph()}
	}
	return NewBlock(typ, attrs, children...)
}

func (im *htmlImporter) list(typ string, attrs map[string]any, el *html.Node, marks []Mark) *Node {
	list := NewBlock(typ, attrs)
	itemType := "listItem"
	if typ == "taskList" {
		itemType = "taskItem"
	}
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode && (c.Type != html.TextNode || strings.TrimSpace(c.Data) == "") {
			continue
		}
		if c.Type == html.ElementNode && c.DataAtom == atom.Li {
			var itemAttrs map[string]any
			if itemType == "taskItem" {
				itemAttrs = map[string]any{"checked": taskChecked(c)}
				removeCheckbox(c)
			}
			list.Content = append(list.Content, im.container(itemType, itemAttrs, c, marks))
			continue
		}
		// Stray content inside a list gets its own item.
		wrapper := &html.Node{Type: html.ElementNode, Data: "li", DataAtom: atom.Li}
		wrapper.AppendChild(cloneHTML(c))
		list.Content = append(list.Content, im.container(itemType, nil, wrapper, marks))
	}
	if len(list.Content) == 0 {
		list.Content = []*Node{NewBlock(itemType, nil, NewParagraph())}
	}
	return list
}

func (im *htmlImporter) codeBlock(el *html.Node) *Node {
	var attrs map[string]any
	if code := findElement(el, atom.Code); code != nil {
		for _, class := range strings.Fields(attr(code, "class")) {
			if lang, ok := strings.CutPrefix(class, "language-"); ok {
				attrs = map[string]any{"language": lang}
				break
			}
		}
	}
	text := strings.TrimSuffix(rawText(el), "\n")
	if text == "" {
		return NewBlock("codeBlock", attrs)
	}
	return NewBlock("codeBlock", attrs, NewText(text))
}

func (im *htmlImporter) table(el *html.Node, marks []Mark) *Node {
	table := NewBlock("table", nil)
	var rows func(*html.Node)
	rows = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Thead, atom.Tbody, atom.Tfoot:
				rows(c)
			case atom.Tr:
				row := NewBlock("tableRow", nil)
				for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type != html.ElementNode || (cell.DataAtom != atom.Td && cell.DataAtom != atom.Th) {
						continue
					}
					typ := "tableCell"
					if cell.DataAtom == atom.Th {
						typ = "tableHeader"
					}
					var attrs map[string]any
					for _, name := range []string{"colspan", "rowspan"} {
						if v, err := strconv.Atoi(attr(cell, name)); err == nil && v != 1 {
							if attrs == nil {
								attrs = map[string]any{}
							}
							attrs[name] = v
						}
					}
					row.Content = append(row.Content, im.container(typ, attrs, cell, marks))
				}
				if len(row.Content) > 0 {
					table.Content = append(table.Content, row)
				}
			}
		}
	}
	rows(el)
	return table
}

// inline converts one DOM node found in inline context. Whitespace is
// collapsed; pre content never reaches here.
func (im *htmlImporter) inline(n *html.Node, marks []Mark) []*Node {
	switch n.Type {
	case html.TextNode:
		text := whitespaceRun.ReplaceAllString(n.Data, " ")
		if text == "" {
			return nil
		}
		return []*Node{NewText(text, marks...)}
	case html.ElementNode:
	default:
		return nil
	}
	if skippedElements[n.DataAtom] {
		return nil
	}

	switch n.DataAtom {
	case atom.Br:
		return []*Node{NewAtom("hardBreak", nil)}
	case atom.Img:
		return []*Node{imageNode(n)}
	case atom.Input:
		return nil
	case atom.Span:
		if attr(n, "data-type") == "inlineMath" {
			latex := attr(n, "data-latex")
			if latex == "" {
				latex = rawText(n)
			}
			return []*Node{NewAtom("inlineMath", map[string]any{"latex": latex})}
		}
	}

	if m, ok := markFor(n); ok {
		marks = withMark(marks, m)
	}
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, im.inline(c, marks)...)
	}
	return out
}

func markFor(n *html.Node) (Mark, bool) {
	switch n.DataAtom {
	case atom.Strong, atom.B:
		return Mark{Type: "bold"}, true
	case atom.Em, atom.I:
		return Mark{Type: "italic"}, true
	case atom.U:
		return Mark{Type: "underline"}, true
	case atom.S, atom.Del, atom.Strike:
		return Mark{Type: "strike"}, true
	case atom.Code:
		return Mark{Type: "code"}, true
	case atom.A:
		if href := attr(n, "href"); href != "" {
			return Mark{Type: "link", Attrs: map[string]any{"href": href}}, true
		}
	case atom.Mark:
		if color := attr(n, "data-color"); color != "" {
			return Mark{Type: "highlight", Attrs: map[string]any{"color": color}}, true
		}
		return Mark{Type: "highlight"}, true
	case atom.Span:
		if color := styleValue(attr(n, "style"), "color"); color != "" {
			return Mark{Type: "textStyle", Attrs: map[string]any{"color": color}}, true
		}
	}
	return Mark{}, false
}

func withMark(marks []Mark, m Mark) []Mark {
	for _, existing := range marks {
		if existing.Type == m.Type {
			return marks
		}
	}
	out := make([]Mark, len(marks), len(marks)+1)
	copy(out, marks)
	return append(out, m)
}

// normalizeInline drops collapsible whitespace at the block edges and after
// hard breaks, then merges adjacent runs with equal marks.
func normalizeInline(inline []*Node) []*Node {
	var out []*Node
	for _, n := range inline {
		if !n.IsText() {
			out = append(out, n)
			continue
		}
		text := n.Text
		if strings.HasPrefix(text, " ") {
			var prev *Node
			if len(out) > 0 {
				prev = out[len(out)-1]
			}
			if prev == nil || prev.Type == "hardBreak" || (prev.IsText() && strings.HasSuffix(prev.Text, " ")) {
				text = text[1:]
			}
		}
		if text == "" {
			continue
		}
		if len(out) > 0 && out[len(out)-1].IsText() && MarksEqual(out[len(out)-1].Marks, n.Marks) {
			out[len(out)-1] = NewText(out[len(out)-1].Text+text, n.Marks...)
			continue
		}
		out = append(out, NewText(text, n.Marks...))
	}
	// Trailing whitespace before a break or at the end of the block.
	for i := len(out) - 1; i >= 0; i-- {
		if !out[i].IsText() {
			continue
		}
		if i == len(out)-1 || out[i+1].Type == "hardBreak" {
			trimmed := strings.TrimRight(out[i].Text, " ")
			if trimmed == "" {
				out = append(out[:i], out[i+1:]...)
				continue
			}
			out[i] = NewText(trimmed, out[i].Marks...)
		}
	}
	return out
}

// splitBlockAtoms lifts block-level atoms out of inline content.
func splitBlockAtoms(typ string, attrs map[string]any, content []*Node) []*Node {
	var (
		out  []*Node
		cur  []*Node
		used bool
	)
	emit := func() {
		if len(cur) == 0 {
			return
		}
		a := attrs
		if used {
			a = cloneAttrs(attrs)
		}
		out = append(out, NewBlock(typ, a, cur...))
		used = true
		cur = nil
	}
	for _, n := range content {
		if n.IsInline() {
			cur = append(cur, n)
			continue
		}
		emit()
		out = append(out, n)
	}
	emit()
	return out
}

func imageNode(el *html.Node) *Node {
	attrs := map[string]any{"src": attr(el, "src")}
	for _, name := range []string{"alt", "title"} {
		if v := attr(el, name); v != "" {
			attrs[name] = v
		}
	}
	if w, err := strconv.Atoi(attr(el, "width")); err == nil {
		attrs["width"] = w
	}
	return NewAtom("image", attrs)
}

func hasCheckboxItems(ul *html.Node) bool {
	for c := ul.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Li && checkbox(c) != nil {
			return true
		}
	}
	return false
}

func checkbox(li *html.Node) *html.Node {
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode && strings.TrimSpace(c.Data) == "":
			continue
		case c.Type == html.ElementNode && c.DataAtom == atom.Input && attr(c, "type") == "checkbox":
			return c
		case c.Type == html.ElementNode && (c.DataAtom == atom.P || c.DataAtom == atom.Label):
			if cb := checkbox(c); cb != nil {
				return cb
			}
		}
		return nil
	}
	return nil
}

func taskChecked(li *html.Node) bool {
	if v := attr(li, "data-checked"); v != "" {
		return v == "true"
	}
	if cb := checkbox(li); cb != nil {
		return hasAttr(cb, "checked")
	}
	return false
}

func removeCheckbox(li *html.Node) {
	if cb := checkbox(li); cb != nil && cb.Parent != nil {
		cb.Parent.RemoveChild(cb)
	}
}

func containsBlock(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && blockElements[c.DataAtom] && c.DataAtom != atom.Img {
			return true
		}
	}
	return false
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func rawText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Br {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func cloneHTML(n *html.Node) *html.Node {
	out := &html.Node{Type: n.Type, Data: n.Data, DataAtom: n.DataAtom, Attr: append([]html.Attribute(nil), n.Attr...)}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out.AppendChild(cloneHTML(c))
	}
	return out
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}

func styleValue(style, property string) string {
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if ok && strings.EqualFold(strings.TrimSpace(k), property) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
