package session

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/dgallion1/ultratext/internal/convert"
)

// OpenResult is the answer to an open-file request.
type OpenResult struct {
	Canceled bool
	Path     string
	Content  []byte
}

// SaveRequest asks the host to write content. An empty SuggestedPath lets
// the host ask for one.
type SaveRequest struct {
	SuggestedPath string
	Content       []byte
	Format        convert.Format
}

// SaveResult carries the final path of a save or path choice.
type SaveResult struct {
	Canceled bool
	Path     string
}

// Host performs file operations on behalf of an editor. Every call is one
// request/response exchange.
type Host interface {
	OpenFile(ctx context.Context) (OpenResult, error)
	SaveFile(ctx context.Context, req SaveRequest) (SaveResult, error)
	ChooseSavePath(ctx context.Context, suggested string, format convert.Format) (SaveResult, error)
}

// Dialog picks file paths. ok is false when the user canceled.
type Dialog interface {
	PickOpen(ctx context.Context) (path string, ok bool, err error)
	PickSave(ctx context.Context, defaultPath string, format convert.Format) (path string, ok bool, err error)
}

// FixedPath is a Dialog that always answers with the same path. An empty
// FixedPath cancels opens and accepts the default path on saves.
type FixedPath string

func (p FixedPath) PickOpen(context.Context) (string, bool, error) {
	return string(p), p != "", nil
}

func (p FixedPath) PickSave(_ context.Context, defaultPath string, _ convert.Format) (string, bool, error) {
	if p == "" {
		return defaultPath, defaultPath != "", nil
	}
	return string(p), true, nil
}

// FileHost is a Host backed by an afero filesystem.
type FileHost struct {
	Fs     afero.Fs
	Dialog Dialog
}

// NewFileHost returns a FileHost. A nil fs means the OS filesystem.
func NewFileHost(fs afero.Fs, dialog Dialog) *FileHost {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileHost{Fs: fs, Dialog: dialog}
}

// DefaultFileName is the name proposed for a document that was never saved.
func DefaultFileName(format convert.Format) string {
	return "untitled." + format.Extension()
}

func (h *FileHost) OpenFile(ctx context.Context) (OpenResult, error) {
	path, ok, err := h.Dialog.PickOpen(ctx)
	if err != nil {
		return OpenResult{}, fmt.Errorf("pick file: %w", err)
	}
	if !ok {
		return OpenResult{Canceled: true}, nil
	}
	data, err := afero.ReadFile(h.Fs, path)
	if err != nil {
		return OpenResult{}, err
	}
	return OpenResult{Path: path, Content: data}, nil
}

func (h *FileHost) SaveFile(ctx context.Context, req SaveRequest) (SaveResult, error) {
	path := req.SuggestedPath
	if path == "" {
		picked, err := h.ChooseSavePath(ctx, "", req.Format)
		if err != nil || picked.Canceled {
			return picked, err
		}
		path = picked.Path
	}
	if dir := filepath.Dir(path); dir != "." && dir != "/" {
		if err := h.Fs.MkdirAll(dir, 0o755); err != nil {
			return SaveResult{}, err
		}
	}
	if err := afero.WriteFile(h.Fs, path, req.Content, 0o644); err != nil {
		return SaveResult{}, err
	}
	return SaveResult{Path: path}, nil
}

func (h *FileHost) ChooseSavePath(ctx context.Context, suggested string, format convert.Format) (SaveResult, error) {
	if suggested == "" {
		suggested = DefaultFileName(format)
	}
	path, ok, err := h.Dialog.PickSave(ctx, suggested, format)
	if err != nil {
		return SaveResult{}, fmt.Errorf("pick save path: %w", err)
	}
	if !ok || path == "" {
		return SaveResult{Canceled: true}, nil
	}
	return SaveResult{Path: path}, nil
}
