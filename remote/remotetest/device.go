// Package remotetest provides an in-memory device that stands in for a remote.Session.
package remotetest

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/moyoez/devconf/remote"
	"github.com/moyoez/devconf/types"
)

// Write is one successful WriteFile call.
type Write struct {
	Path    string
	Content string
}

// Device keeps files in memory and records every write and command.
type Device struct {
	mu         sync.Mutex
	endpoint   types.DeviceEndpoint
	connected  bool
	files      map[string]string
	readErr    map[string]error
	writeErr   map[string]error
	cmdErr     map[string]error
	reachable  bool
	hostname   string
	connectErr error
	writes     []Write
	commands   []string
}

// NewDevice returns a connected device of the given kind holding files.
func NewDevice(kind types.DeviceKind, files map[string]string) *Device {
	return &Device{
		endpoint:  types.DeviceEndpoint{Host: "192.168.1.10", Port: 22, Username: "root", Password: "12345", Kind: kind},
		connected: true,
		files:     maps.Clone(files),
		readErr:   map[string]error{},
		writeErr:  map[string]error{},
		cmdErr:    map[string]error{},
		reachable: true,
		hostname:  "openipc-" + string(kind),
	}
}

func (d *Device) SetConnected(connected bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = connected
}

func (d *Device) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *Device) Endpoint() (types.DeviceEndpoint, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.endpoint, d.connected
}

// SetReachable controls what Probe reports.
func (d *Device) SetReachable(reachable bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reachable = reachable
}

// FailConnect makes every Connect return err until called with nil.
func (d *Device) FailConnect(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connectErr = err
}

func (d *Device) Probe(_ context.Context, _ types.DeviceEndpoint) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reachable
}

// Connect adopts endpoint, keeping the files of the previous one.
func (d *Device) Connect(_ context.Context, endpoint types.DeviceEndpoint) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connectErr != nil {
		return d.connectErr
	}
	d.endpoint = endpoint
	d.connected = true
	return nil
}

func (d *Device) Disconnect() {
	d.SetConnected(false)
}

func (d *Device) Run(ctx context.Context, cmd remote.Command) (remote.CommandOutput, error) {
	return d.RunCommand(ctx, cmd.Line, cmd.Timeout)
}

func (d *Device) Hostname(ctx context.Context) (string, error) {
	if _, err := d.RunCommand(ctx, remote.CmdHostname.Line, 0); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hostname, nil
}

// FailRead makes reads of path fail with err.
func (d *Device) FailRead(path string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readErr[path] = err
}

// FailWrite makes writes of path fail with err.
func (d *Device) FailWrite(path string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeErr[path] = err
}

// FailCommand makes the exact command line fail with err.
func (d *Device) FailCommand(command string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cmdErr[command] = err
}

func (d *Device) ReadFile(_ context.Context, path string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return "", &remote.IOError{Op: "read", Path: path, Err: remote.ErrNotConnected}
	}
	if err := d.readErr[path]; err != nil {
		return "", &remote.IOError{Op: "read", Path: path, Err: err}
	}
	content, ok := d.files[path]
	if !ok {
		return "", &remote.IOError{Op: "read", Path: path, Err: &remote.RemoteError{Command: "cat " + path, ExitCode: 1, Stderr: "No such file or directory"}}
	}
	return content, nil
}

func (d *Device) WriteFile(_ context.Context, path, content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return &remote.IOError{Op: "write", Path: path, Err: remote.ErrNotConnected}
	}
	if err := d.writeErr[path]; err != nil {
		return &remote.IOError{Op: "write", Path: path, Err: err}
	}
	d.files[path] = content
	d.writes = append(d.writes, Write{Path: path, Content: content})
	return nil
}

func (d *Device) RunCommand(_ context.Context, command string, _ time.Duration) (remote.CommandOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := remote.CommandOutput{Command: command}
	if !d.connected {
		return out, remote.ErrNotConnected
	}
	d.commands = append(d.commands, command)
	if err := d.cmdErr[command]; err != nil {
		return out, err
	}
	return out, nil
}

// File returns the current content of path.
func (d *Device) File(path string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.files[path]
}

func (d *Device) Writes() []Write {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Write(nil), d.writes...)
}

func (d *Device) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}
