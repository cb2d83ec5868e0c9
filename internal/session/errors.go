package session

import "errors"

var (
	// ErrIO wraps every failure reported by the Host.
	ErrIO = errors.New("file i/o failed")

	ErrUnknownCommand = errors.New("unknown command")
)
