package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dgallion1/ultratext/internal/convert"
	"github.com/dgallion1/ultratext/internal/doctree"
	"github.com/dgallion1/ultratext/internal/index"
	"github.com/dgallion1/ultratext/internal/parser"
	"github.com/dgallion1/ultratext/internal/replace"
	"github.com/dgallion1/ultratext/internal/search"
)

// Confirmer asks whether unsaved changes may be thrown away.
type Confirmer interface {
	ConfirmDiscard(ctx context.Context) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context) bool

func (f ConfirmFunc) ConfirmDiscard(ctx context.Context) bool { return f(ctx) }

// Always answers every confirmation with the same value.
type Always bool

func (a Always) ConfirmDiscard(context.Context) bool { return bool(a) }

// Command is one entry of the menu and shortcut command surface.
type Command string

const (
	CommandOpen    Command = "open"
	CommandSave    Command = "save"
	CommandSaveAs  Command = "saveAs"
	CommandFind    Command = "find"
	CommandReplace Command = "replace"
)

// Editor is one open document with its session. It is not safe for
// concurrent use.
type Editor struct {
	doc     *doctree.Document
	session *Session
	host    Host
	confirm Confirmer
	log     *slog.Logger
}

// New returns an editor holding an empty document in an unbound session.
func New(host Host, confirm Confirmer, log *slog.Logger) *Editor {
	if confirm == nil {
		confirm = Always(false)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	e := &Editor{
		doc:     doctree.New(),
		session: NewSession(),
		host:    host,
		confirm: confirm,
		log:     log,
	}
	e.doc.OnUpdate(func() { e.session.Dirty = true })
	return e
}

// Document exposes the underlying document.
func (e *Editor) Document() *doctree.Document { return e.doc }

// Session returns a copy of the session record.
func (e *Editor) Session() Session { return *e.session }

// Host returns the host used for file operations.
func (e *Editor) Host() Host { return e.host }

// SetHost swaps the host used by later file operations.
func (e *Editor) SetHost(h Host) { e.host = h }

// Stats counts the document's blocks, words and characters.
func (e *Editor) Stats() index.Stats { return index.Count(e.doc.Root()) }

// Outline lists the document's heading sections.
func (e *Editor) Outline() []index.Section { return index.Outline(e.doc.Root()) }

// Open asks the host for a file and loads it. It returns false without
// error when the user declined to discard changes or canceled the dialog.
// On error the document and session are left untouched.
func (e *Editor) Open(ctx context.Context) (bool, error) {
	if e.session.Dirty && !e.confirm.ConfirmDiscard(ctx) {
		return false, nil
	}
	res, err := e.host.OpenFile(ctx)
	if err != nil {
		return false, fmt.Errorf("open file: %w: %w", ErrIO, err)
	}
	if res.Canceled {
		return false, nil
	}

	format := convert.DetectFormat(res.Path)
	root, err := convert.Deserialize(res.Content, format)
	if err != nil {
		e.log.Warn("open failed", "path", res.Path, "format", format, "error", err)
		return false, fmt.Errorf("open %s: %w", res.Path, err)
	}

	e.doc.SetContent(root, false)
	*e.session = Session{Path: res.Path, Format: format}
	e.log.Info("document opened", "path", res.Path, "format", format, "bytes", len(res.Content))
	return true, nil
}

// Save writes the document in the session's format, asking the host for a
// path when the session is unbound.
func (e *Editor) Save(ctx context.Context) (bool, error) {
	return e.save(ctx, e.session.Path)
}

// SaveAs asks for a new path first, then saves there.
func (e *Editor) SaveAs(ctx context.Context) (bool, error) {
	pick, err := e.host.ChooseSavePath(ctx, e.session.Path, e.format())
	if err != nil {
		return false, fmt.Errorf("choose save path: %w: %w", ErrIO, err)
	}
	if pick.Canceled {
		return false, nil
	}
	return e.save(ctx, pick.Path)
}

func (e *Editor) save(ctx context.Context, path string) (bool, error) {
	format := e.format()
	content, err := convert.Serialize(e.doc.Root(), format)
	if err != nil {
		return false, err
	}
	res, err := e.host.SaveFile(ctx, SaveRequest{SuggestedPath: path, Content: content, Format: format})
	if err != nil {
		return false, fmt.Errorf("save file: %w: %w", ErrIO, err)
	}
	if res.Canceled {
		return false, nil
	}

	if res.Path != "" {
		e.session.Path = res.Path
	}
	e.session.Format = format
	e.session.Dirty = false
	e.log.Info("document saved", "path", e.session.Path, "format", format, "bytes", len(content))
	return true, nil
}

// format is the remembered format, falling back to the path's extension.
func (e *Editor) format() convert.Format {
	if e.session.Format.Valid() {
		return e.session.Format
	}
	return convert.DetectFormat(e.session.Path)
}

// Import loads a foreign file through the matching importer. The result is
// unbound and dirty, so the next save asks for a path.
func (e *Editor) Import(ctx context.Context, r io.Reader, filename string, opts parser.Options) (bool, error) {
	if e.session.Dirty && !e.confirm.ConfirmDiscard(ctx) {
		return false, nil
	}
	p, err := parser.ForFile(filename, opts)
	if err != nil {
		return false, err
	}
	root, err := p.Parse(r, filename)
	if err != nil {
		return false, fmt.Errorf("import %s: %w", filename, err)
	}
	e.Load(root)
	e.log.Info("document imported", "filename", filename)
	return true, nil
}

// Load replaces the document with root as an unsaved, unbound document.
func (e *Editor) Load(root *doctree.Node) {
	*e.session = Session{Format: convert.FormatJSON}
	e.doc.SetContent(root, true)
}

// Find selects the next occurrence of query after the selection.
func (e *Editor) Find(query string) (search.Match, bool) {
	m, ok := search.FindNext(e.doc.Root(), query, e.doc.Selection().To)
	if ok {
		e.doc.SetSelection(doctree.Selection{From: m.From, To: m.To})
	}
	return m, ok
}

// FindPrev selects the previous occurrence of query before the selection.
func (e *Editor) FindPrev(query string) (search.Match, bool) {
	m, ok := search.FindPrev(e.doc.Root(), query, e.doc.Selection().From)
	if ok {
		e.doc.SetSelection(doctree.Selection{From: m.From, To: m.To})
	}
	return m, ok
}

// Count returns how many non-overlapping occurrences of query exist.
func (e *Editor) Count(query string) int {
	return len(search.FindAll(e.doc.Root(), query))
}

// Replace replaces the current occurrence and selects the next one.
func (e *Editor) Replace(query, replacement string) (search.Match, bool, error) {
	return replace.ReplaceCurrent(e.doc, query, replacement)
}

// ReplaceAll replaces every occurrence and returns the count.
func (e *Editor) ReplaceAll(query, replacement string) (int, error) {
	n, err := replace.ReplaceAll(e.doc, query, replacement)
	if n > 0 {
		e.log.Debug("replaced all", "query", query, "count", n)
	}
	return n, err
}

// Undo reverts the last replacement.
func (e *Editor) Undo() error { return e.doc.Undo() }

// Redo reapplies the last undone replacement.
func (e *Editor) Redo() error { return e.doc.Redo() }

// Export renders the document in format f without touching the session.
func (e *Editor) Export(f convert.Format) ([]byte, error) {
	return convert.Serialize(e.doc.Root(), f)
}

// Dispatch routes a command from the command surface. find and replace use
// query and replacement; the file commands ignore them.
func (e *Editor) Dispatch(ctx context.Context, cmd Command, query, replacement string) error {
	var err error
	switch cmd {
	case CommandOpen:
		_, err = e.Open(ctx)
	case CommandSave:
		_, err = e.Save(ctx)
	case CommandSaveAs:
		_, err = e.SaveAs(ctx)
	case CommandFind:
		e.Find(query)
	case CommandReplace:
		_, _, err = e.Replace(query, replacement)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	if err != nil && !errors.Is(err, ErrIO) && !errors.Is(err, convert.ErrParse) {
		e.log.Error("command failed", "command", cmd, "error", err)
	}
	return err
}
