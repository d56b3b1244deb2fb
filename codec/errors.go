package codec

import (
	"errors"
	"fmt"

	"github.com/moyoez/devconf/types"
)

var (
	// ErrMalformed is matched by every parse failure.
	ErrMalformed = errors.New("malformed config content")
	// ErrInvalidChange is returned for a change that cannot be written as a single entry.
	ErrInvalidChange = errors.New("invalid change")
)

// SyntaxError describes where raw content failed to parse.
type SyntaxError struct {
	Dialect types.Dialect
	Line    int // 1-based, 0 when not tied to a line
	Msg     string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", e.Dialect, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Dialect, e.Msg)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrMalformed
}
