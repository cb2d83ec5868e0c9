package doctree

import "errors"

// Errors returned by document operations.
var (
	// ErrInvalidNode indicates a tree that does not fit the document schema.
	ErrInvalidNode = errors.New("invalid document node")

	// ErrRangeInvalid indicates a range that is out of bounds or crosses a text block boundary.
	ErrRangeInvalid = errors.New("invalid range")

	// ErrNothingToUndo indicates the undo stack is empty.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo indicates the redo stack is empty.
	ErrNothingToRedo = errors.New("nothing to redo")
)
