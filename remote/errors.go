package remote

import (
	"errors"
	"fmt"
)

var (
	ErrUnreachable     = errors.New("device unreachable")
	ErrAuthFailed      = errors.New("authentication failed")
	ErrInvalidEndpoint = errors.New("endpoint needs host, username and password")
	ErrNotConnected    = errors.New("not connected")
	ErrTimeout         = errors.New("command timed out")
	ErrConnectionLost  = errors.New("connection lost")
	ErrClosed          = errors.New("session closed")
	ErrReadFailed      = errors.New("remote read failed")
	ErrWriteFailed     = errors.New("remote write failed")
)

// ConnectionError is returned by Connect. Kind is ErrUnreachable or ErrAuthFailed.
type ConnectionError struct {
	Endpoint string
	Kind     error
	Cause    error
}

func (e *ConnectionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("connect %s: %v", e.Endpoint, e.Kind)
	}
	return fmt.Sprintf("connect %s: %v: %v", e.Endpoint, e.Kind, e.Cause)
}

func (e *ConnectionError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// RemoteError is a command that ran and exited non-zero.
type RemoteError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *RemoteError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%q exited with status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%q exited with status %d: %s", e.Command, e.ExitCode, e.Stderr)
}

// IOError wraps a failed file read or write. It matches ErrReadFailed or ErrWriteFailed.
type IOError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func (e *IOError) Is(target error) bool {
	switch target {
	case ErrReadFailed:
		return e.Op == "read"
	case ErrWriteFailed:
		return e.Op == "write"
	}
	return false
}
