package models

import (
	"context"
	"sync"
	"time"

	"github.com/moyoez/devconf/preset"
	"github.com/moyoez/devconf/remote"
	"github.com/moyoez/devconf/store"
	"github.com/moyoez/devconf/types"
)

// DeviceSession is what the controllers need from the remote session.
type DeviceSession interface {
	preset.Session
	Probe(ctx context.Context, endpoint types.DeviceEndpoint) bool
	Connect(ctx context.Context, endpoint types.DeviceEndpoint) error
	Disconnect()
	Run(ctx context.Context, cmd remote.Command) (remote.CommandOutput, error)
	Hostname(ctx context.Context) (string, error)
}

// Runtime bundles the engine pieces the control api drives.
type Runtime struct {
	Session    DeviceSession
	Store      *store.Store
	Engine     *preset.Engine
	Repository *preset.Repository
	// RequestTimeout bounds one api call against the device. Zero means no limit.
	RequestTimeout time.Duration
}

var (
	runtimeMu sync.RWMutex
	current   *Runtime
)

func SetRuntime(rt *Runtime) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	current = rt
}

func GetRuntime() *Runtime {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	return current
}
