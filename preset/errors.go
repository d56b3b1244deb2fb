package preset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedPreset = errors.New("malformed preset")
	ErrFetchFailed     = errors.New("preset fetch failed")
	ErrApplyFailed     = errors.New("preset apply failed")
	ErrPartialCommit   = errors.New("preset partially committed")
	ErrRestartFailed   = errors.New("service restart failed")
)

// ManifestError describes why a manifest was rejected.
type ManifestError struct {
	Source string
	Msg    string
	Err    error
}

func (e *ManifestError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Source == "" {
		return "preset manifest: " + msg
	}
	return fmt.Sprintf("preset manifest %s: %s", e.Source, msg)
}

func (e *ManifestError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedPreset}
	}
	return []error{ErrMalformedPreset, e.Err}
}

// FetchFailedError is returned when a file could not be read during staging. Nothing was written.
type FetchFailedError struct {
	File string
	Err  error
}

func (e *FetchFailedError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.File, e.Err)
}

func (e *FetchFailedError) Unwrap() []error {
	return []error{ErrFetchFailed, e.Err}
}

// ApplyFailedError is returned when changes could not be applied to a staged file. Nothing was written.
type ApplyFailedError struct {
	File string
	Err  error
}

func (e *ApplyFailedError) Error() string {
	return fmt.Sprintf("apply %s: %v", e.File, e.Err)
}

func (e *ApplyFailedError) Unwrap() []error {
	return []error{ErrApplyFailed, e.Err}
}

// PartialCommitError lists what reached the device before a write failed.
type PartialCommitError struct {
	Succeeded []string
	Failed    []string
	Err       error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("partial commit: written [%s], not written [%s]: %v",
		strings.Join(e.Succeeded, ", "), strings.Join(e.Failed, ", "), e.Err)
}

func (e *PartialCommitError) Unwrap() []error {
	return []error{ErrPartialCommit, e.Err}
}

// RestartError means every file was written but a service did not restart.
type RestartError struct {
	Commands []string
	Err      error
}

func (e *RestartError) Error() string {
	return fmt.Sprintf("restart %s: %v", strings.Join(e.Commands, ", "), e.Err)
}

func (e *RestartError) Unwrap() []error {
	return []error{ErrRestartFailed, e.Err}
}
