package remote

import (
	"context"
	"time"

	"github.com/moyoez/devconf/types"
)

// CommandOutput is what a finished remote command produced.
type CommandOutput struct {
	Command  string        `json:"command"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// Transport runs commands over one established connection. A non-zero exit status is
// reported through CommandOutput.ExitCode; an error means the command could not run or
// ctx ended first, in which case the command's channel has been torn down.
type Transport interface {
	Run(ctx context.Context, command, stdin string) (CommandOutput, error)
	Close() error
}

// Dialer opens a Transport. Failures are *ConnectionError.
type Dialer interface {
	Dial(ctx context.Context, endpoint types.DeviceEndpoint) (Transport, error)
}
