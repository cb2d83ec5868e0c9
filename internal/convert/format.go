package convert

import (
	"fmt"
	"strings"
)

// Format is a file format the converter reads and writes.
type Format string

const (
	FormatJSON      Format = "json"
	FormatMarkdown  Format = "md"
	FormatPlainText Format = "txt"
)

// Extension is the file name extension for f, without the dot.
func (f Format) Extension() string { return string(f) }

// Label is the upper-case name shown in status lines.
func (f Format) Label() string { return strings.ToUpper(string(f)) }

// Valid reports whether f is one of the known formats.
func (f Format) Valid() bool {
	switch f {
	case FormatJSON, FormatMarkdown, FormatPlainText:
		return true
	}
	return false
}

// ParseFormat accepts a format name or a common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text", "plain":
		return FormatPlainText, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// DetectFormat picks a format from a file path: .md and .markdown are
// Markdown, .txt is plain text and anything else, an empty path included,
// is JSON.
func DetectFormat(path string) Format {
	p := strings.ToLower(path)
	switch {
	case strings.HasSuffix(p, ".md"), strings.HasSuffix(p, ".markdown"):
		return FormatMarkdown
	case strings.HasSuffix(p, ".txt"):
		return FormatPlainText
	}
	return FormatJSON
}
