// Package session ties a document to a file: open, save, find and replace
// as one editing session.
package session

import (
	"fmt"

	"github.com/dgallion1/ultratext/internal/convert"
)

// AppName prefixes window titles.
const AppName = "UltraText"

// Session is the file binding of one document. A new session has no path,
// the JSON format and no unsaved changes.
type Session struct {
	Path   string         `json:"path,omitempty"`
	Format convert.Format `json:"format"`
	Dirty  bool           `json:"dirty"`
}

// NewSession returns an unbound session.
func NewSession() *Session {
	return &Session{Format: convert.FormatJSON}
}

// Bound reports whether the session has a file path.
func (s Session) Bound() bool { return s.Path != "" }

// Title is the window title for the session.
func (s Session) Title() string {
	if s.Path == "" {
		return AppName
	}
	return AppName + " - " + s.Path
}

// Status is the status line text. Unbound sessions have none.
func (s Session) Status() string {
	if s.Path == "" {
		return ""
	}
	status := fmt.Sprintf("File: %s  Format: %s", s.Path, s.Format.Label())
	if s.Dirty {
		status += " *"
	}
	return status
}
