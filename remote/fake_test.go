package remote

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moyoez/devconf/types"
)

type call struct {
	command string
	stdin   string
	start   time.Time
	end     time.Time
}

type fakeTransport struct {
	run func(ctx context.Context, command, stdin string) (CommandOutput, error)

	mu        sync.Mutex
	calls     []call
	active    atomic.Int32
	maxActive atomic.Int32
	closed    atomic.Bool
}

func (f *fakeTransport) Run(ctx context.Context, command, stdin string) (CommandOutput, error) {
	n := f.active.Add(1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	start := time.Now()
	var (
		out CommandOutput
		err error
	)
	if f.run != nil {
		out, err = f.run(ctx, command, stdin)
	}
	out.Command = command
	end := time.Now()
	f.active.Add(-1)

	f.mu.Lock()
	f.calls = append(f.calls, call{command: command, stdin: stdin, start: start, end: end})
	f.mu.Unlock()
	return out, err
}

func (f *fakeTransport) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *fakeTransport) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type fakeDialer struct {
	err error
	run func(ctx context.Context, command, stdin string) (CommandOutput, error)

	mu         sync.Mutex
	dials      []types.DeviceEndpoint
	transports []*fakeTransport
}

func (d *fakeDialer) Dial(_ context.Context, endpoint types.DeviceEndpoint) (Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials = append(d.dials, endpoint)
	if d.err != nil {
		return nil, d.err
	}
	t := &fakeTransport{run: d.run}
	d.transports = append(d.transports, t)
	return t, nil
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dials)
}

func (d *fakeDialer) Transport(i int) *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transports[i]
}

var (
	cameraA = types.DeviceEndpoint{Host: "192.168.1.10", Username: "root", Password: "12345", Kind: types.DeviceKindCamera}
	cameraB = types.DeviceEndpoint{Host: "192.168.1.11", Username: "root", Password: "12345", Kind: types.DeviceKindCamera}
)

func testOptions() Options {
	return Options{
		CommandTimeout: 50 * time.Millisecond,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}
