package doctree

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// HTML renders root as an HTML fragment.
func HTML(root *Node) string {
	var b strings.Builder
	for _, c := range root.Content {
		writeBlock(&b, c)
	}
	return b.String()
}

func writeBlock(b *strings.Builder, n *Node) {
	switch n.Type {
	case "paragraph":
		writeWrapped(b, "p", nil, n)
	case "heading":
		level := clamp(n.IntAttr("level", 1), 1, 6)
		writeWrapped(b, fmt.Sprintf("h%d", level), nil, n)
	case "blockquote":
		writeContainer(b, "blockquote", nil, n)
	case "bulletList":
		writeContainer(b, "ul", nil, n)
	case "orderedList":
		var attrs [][2]string
		if start := n.IntAttr("start", 1); start != 1 {
			attrs = append(attrs, [2]string{"start", fmt.Sprint(start)})
		}
		writeContainer(b, "ol", attrs, n)
	case "listItem":
		writeContainer(b, "li", nil, n)
	case "taskList":
		writeContainer(b, "ul", [][2]string{{"data-type", "taskList"}}, n)
	case "taskItem":
		checked := "false"
		if v, _ := n.Attr("checked").(bool); v {
			checked = "true"
		}
		writeContainer(b, "li", [][2]string{{"data-type", "taskItem"}, {"data-checked", checked}}, n)
	case "codeBlock":
		b.WriteString("<pre><code")
		if lang := n.StringAttr("language"); lang != "" {
			writeAttrs(b, [][2]string{{"class", "language-" + lang}})
		}
		b.WriteString(">")
		b.WriteString(textEscaper.Replace(n.TextContent()))
		b.WriteString("</code></pre>")
	case "math":
		writeWrapped(b, "div", [][2]string{{"data-type", "math"}}, n)
	case "table":
		b.WriteString("<table><tbody>")
		for _, c := range n.Content {
			writeBlock(b, c)
		}
		b.WriteString("</tbody></table>")
	case "tableRow":
		writeContainer(b, "tr", nil, n)
	case "tableCell", "tableHeader":
		tag := "td"
		if n.Type == "tableHeader" {
			tag = "th"
		}
		var attrs [][2]string
		for _, name := range []string{"colspan", "rowspan"} {
			if v := n.IntAttr(name, 1); v != 1 {
				attrs = append(attrs, [2]string{name, fmt.Sprint(v)})
			}
		}
		writeContainer(b, tag, attrs, n)
	case "horizontalRule":
		b.WriteString("<hr>")
	case "image":
		b.WriteString("<img")
		writeAttrs(b, stringAttrs(n, "src", "alt", "title", "width"))
		b.WriteString(">")
	case "iframe":
		b.WriteString("<iframe")
		writeAttrs(b, append(stringAttrs(n, "src"), [2]string{"frameborder", "0"}, [2]string{"allowfullscreen", "true"}))
		b.WriteString("></iframe>")
	default:
		writeContainer(b, "div", nil, n)
	}
}

func writeContainer(b *strings.Builder, tag string, attrs [][2]string, n *Node) {
	if n.IsTextblock() && len(n.Content) > 0 {
		writeWrapped(b, tag, attrs, n)
		return
	}
	b.WriteString("<" + tag)
	writeAttrs(b, attrs)
	b.WriteString(">")
	for _, c := range n.Content {
		writeBlock(b, c)
	}
	b.WriteString("</" + tag + ">")
}

func writeWrapped(b *strings.Builder, tag string, attrs [][2]string, n *Node) {
	b.WriteString("<" + tag)
	writeAttrs(b, attrs)
	b.WriteString(">")
	writeInline(b, n.Content)
	b.WriteString("</" + tag + ">")
}

// writeInline renders inline content, keeping a mark open across adjacent
// runs that share it.
func writeInline(b *strings.Builder, content []*Node) {
	var open []Mark
	for _, c := range content {
		marks := c.Marks
		keep := 0
		for keep < len(open) && keep < len(marks) && open[keep].Equal(marks[keep]) {
			keep++
		}
		for i := len(open) - 1; i >= keep; i-- {
			b.WriteString(markClose(open[i]))
		}
		open = open[:keep]
		for _, m := range marks[keep:] {
			b.WriteString(markOpen(m))
			open = append(open, m)
		}

		switch c.Type {
		case "text":
			b.WriteString(textEscaper.Replace(c.Text))
		case "hardBreak":
			b.WriteString("<br>")
		case "inlineMath":
			latex := c.StringAttr("latex")
			b.WriteString("<span")
			writeAttrs(b, [][2]string{{"data-type", "inlineMath"}, {"data-latex", latex}})
			b.WriteString(">" + textEscaper.Replace(latex) + "</span>")
		default:
			writeBlock(b, c)
		}
	}
	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString(markClose(open[i]))
	}
}

func markTag(m Mark) string {
	switch m.Type {
	case "bold":
		return "strong"
	case "italic":
		return "em"
	case "underline":
		return "u"
	case "strike":
		return "s"
	case "code":
		return "code"
	case "link":
		return "a"
	case "highlight":
		return "mark"
	}
	return "span"
}

func markOpen(m Mark) string {
	var b strings.Builder
	tag := markTag(m)
	b.WriteString("<" + tag)
	switch m.Type {
	case "link":
		href, _ := m.Attrs["href"].(string)
		writeAttrs(&b, [][2]string{{"href", href}, {"target", "_blank"}, {"rel", "noopener noreferrer nofollow"}})
	case "highlight":
		if color, _ := m.Attrs["color"].(string); color != "" {
			writeAttrs(&b, [][2]string{{"data-color", color}, {"style", "background-color: " + color}})
		}
	case "textStyle":
		var style []string
		if color, _ := m.Attrs["color"].(string); color != "" {
			style = append(style, "color: "+color)
		}
		if family, _ := m.Attrs["fontFamily"].(string); family != "" {
			style = append(style, "font-family: "+family)
		}
		if len(style) > 0 {
			writeAttrs(&b, [][2]string{{"style", strings.Join(style, "; ")}})
		}
	}
	b.WriteString(">")
	return b.String()
}

func markClose(m Mark) string {
	return "</" + markTag(m) + ">"
}

func writeAttrs(b *strings.Builder, attrs [][2]string) {
	for _, kv := range attrs {
		b.WriteString(" " + kv[0] + `="` + html.EscapeString(kv[1]) + `"`)
	}
}

func stringAttrs(n *Node, names ...string) [][2]string {
	var out [][2]string
	for _, name := range names {
		v := n.Attr(name)
		if v == nil {
			continue
		}
		out = append(out, [2]string{name, fmt.Sprint(v)})
	}
	return out
}
