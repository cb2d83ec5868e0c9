package convert

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"

	"github.com/dgallion1/ultratext/internal/doctree"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		gmhtml.WithHardWraps(),
		gmhtml.WithUnsafe(),
	),
)

// MarkdownToDocument renders Markdown (GFM, line breaks kept) to HTML and
// imports the result. It never fails on malformed Markdown.
func MarkdownToDocument(src string) (*doctree.Node, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return nil, err
	}
	return doctree.FromHTML(buf.String())
}

// DocumentToMarkdown exports a small Markdown subset: headings up to level
// three, bold, italic, line breaks and paragraphs. Other tags are dropped and
// their text kept as is, entities included. When nothing is left the plain-text
// projection is returned instead.
func DocumentToMarkdown(root *doctree.Node) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(doctree.HTML(root)))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.TextToken:
			b.Write(z.Raw())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			b.WriteString(openMarkup(string(name)))
		case html.EndTagToken:
			name, _ := z.TagName()
			b.WriteString(closeMarkup(string(name)))
		}
	}
	if md := strings.TrimSpace(b.String()); md != "" {
		return md
	}
	return DocumentToPlainText(root)
}

func openMarkup(tag string) string {
	switch tag {
	case "h1":
		return "# "
	case "h2":
		return "## "
	case "h3":
		return "### "
	case "strong", "b":
		return "**"
	case "em", "i":
		return "*"
	case "br":
		return "\n"
	}
	return ""
}

func closeMarkup(tag string) string {
	switch tag {
	case "h1", "h2", "h3", "p":
		return "\n\n"
	case "strong", "b":
		return "**"
	case "em", "i":
		return "*"
	}
	return ""
}
