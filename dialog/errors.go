package dialog

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed is returned for events delivered after Close.
	ErrSessionClosed = errors.New("dialog session closed")
	// ErrNoSession is returned by the host when no dialog is open.
	ErrNoSession = errors.New("no dialog session open")
	// ErrUnknownRequest is returned when a prompt response matches no pending prompt.
	ErrUnknownRequest = errors.New("unknown prompt request")
	// ErrMarkupTooLarge is returned when a field markup response exceeds the size limit.
	ErrMarkupTooLarge = errors.New("field markup too large")
)

// FetchError reports a failed retrieval of a dependent field's markup.
type FetchError struct {
	Field string // field resource path that failed
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to load field %s: %v", e.Field, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
