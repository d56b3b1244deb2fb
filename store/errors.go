package store

import (
	"errors"
	"fmt"

	"github.com/moyoez/devconf/types"
)

var (
	ErrRemoteUnavailable = errors.New("remote unavailable")
	ErrMalformedContent  = errors.New("malformed content")
	ErrReadFailed        = errors.New("config read failed")
	ErrWriteFailed       = errors.New("config write failed")
	ErrUnknownCategory   = errors.New("unknown config category")
	ErrDialectMismatch   = errors.New("document dialect does not match category")
)

// MalformedContentError keeps the bytes that failed to parse so nothing is half-read.
type MalformedContentError struct {
	Category types.Category
	Path     string
	Raw      string
	Err      error
}

func (e *MalformedContentError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Category, e.Path, e.Err)
}

func (e *MalformedContentError) Unwrap() []error {
	return []error{ErrMalformedContent, e.Err}
}
