// Package remote owns the command channel to one device. Every operation goes through a
// single worker goroutine, so commands run one at a time in submission order.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/moyoez/devconf/tool"
	"github.com/moyoez/devconf/types"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultCommandTimeout = 15 * time.Second
	DefaultMaxAttempts    = 3
)

// Options tunes a Session. Zero values take the defaults.
type Options struct {
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	ProbeTimeout   time.Duration
	// MaxAttempts bounds how often a timed out command is tried in total.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// CommandRate paces commands per second, 0 disables pacing.
	CommandRate  float64
	CommandBurst int
}

func (o *Options) fill() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = DefaultCommandTimeout
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = DefaultProbeTimeout
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = DefaultInitialBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = DefaultMaxBackoff
	}
	if o.CommandBurst <= 0 {
		o.CommandBurst = 1
	}
}

// OptionsFromConfig builds session options from the local settings.
func OptionsFromConfig(cfg types.AppConfig) Options {
	return Options{
		ConnectTimeout: cfg.ConnectTimeoutDuration(),
		CommandTimeout: cfg.CommandTimeoutDuration(),
		ProbeTimeout:   cfg.ProbeTimeoutDuration(),
		CommandRate:    float64(cfg.CommandRate),
		CommandBurst:   max(cfg.CommandRate/2, 1),
	}
}

type request struct {
	ctx  context.Context
	fn   func(ctx context.Context)
	ran  bool
	done chan struct{}
}

// Session is the single remote command channel of a run.
type Session struct {
	dialer  Dialer
	opts    Options
	limiter *rate.Limiter

	reqs      chan *request
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// owned by the worker goroutine
	transport Transport
	endpoint  types.DeviceEndpoint
	stale     bool

	connected atomic.Bool
	current   atomic.Pointer[types.DeviceEndpoint]
}

// NewSession starts the worker goroutine. Call Close to stop it.
func NewSession(dialer Dialer, opts Options) *Session {
	opts.fill()
	s := &Session{
		dialer:  dialer,
		opts:    opts,
		reqs:    make(chan *request),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	if opts.CommandRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.CommandRate), opts.CommandBurst)
	}
	go s.loop()
	return s
}

func (s *Session) loop() {
	defer close(s.stopped)
	for {
		select {
		case req := <-s.reqs:
			if req.ctx.Err() == nil {
				req.fn(req.ctx)
				req.ran = true
			}
			close(req.done)
		case <-s.quit:
			s.teardown()
			return
		}
	}
}

// submit queues fn behind every earlier submission and waits for it to finish. If ctx ends
// while fn is still queued, submit returns ctx.Err() and fn is skipped.
func (s *Session) submit(ctx context.Context, fn func(ctx context.Context)) error {
	req := &request{ctx: ctx, fn: fn, done: make(chan struct{})}
	select {
	case s.reqs <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.quit:
		return ErrClosed
	}
	<-req.done
	if !req.ran {
		return ctx.Err()
	}
	return nil
}

// Connected reports whether a transport is open.
func (s *Session) Connected() bool {
	return s.connected.Load()
}

// Endpoint returns the endpoint of the open connection.
func (s *Session) Endpoint() (types.DeviceEndpoint, bool) {
	e := s.current.Load()
	if e == nil {
		return types.DeviceEndpoint{}, false
	}
	return *e, true
}

// Probe checks reachability without touching the session queue.
func (s *Session) Probe(ctx context.Context, endpoint types.DeviceEndpoint) bool {
	return Probe(ctx, endpoint, s.opts.ProbeTimeout)
}

// Connect opens a connection to endpoint. It is a no-op when already connected to the same
// endpoint; a different endpoint replaces the old connection once in-flight commands finish.
func (s *Session) Connect(ctx context.Context, endpoint types.DeviceEndpoint) error {
	if !endpoint.CanConnect() {
		return ErrInvalidEndpoint
	}
	var err error
	if qerr := s.submit(ctx, func(ctx context.Context) {
		if s.transport != nil && !s.stale && s.endpoint.Same(endpoint) {
			return
		}
		if s.transport != nil {
			tool.DefaultLogger.Infof("Switching device %s -> %s", s.endpoint, endpoint)
			s.teardown()
		}
		err = s.dial(ctx, endpoint)
	}); qerr != nil {
		return qerr
	}
	return err
}

func (s *Session) dial(ctx context.Context, endpoint types.DeviceEndpoint) error {
	dctx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
	defer cancel()
	start := time.Now()
	t, err := s.dialer.Dial(dctx, endpoint)
	if err != nil {
		var ce *ConnectionError
		if !errors.As(err, &ce) {
			err = &ConnectionError{Endpoint: endpoint.Addr(), Kind: ErrUnreachable, Cause: err}
		}
		tool.DefaultLogger.Warnf("Connect to %s failed: %v", endpoint, err)
		return err
	}
	s.transport = t
	s.endpoint = endpoint
	s.stale = false
	s.connected.Store(true)
	s.current.Store(&endpoint)
	tool.DefaultLogger.Infof("Connected to %s in %s", endpoint, time.Since(start).Round(time.Millisecond))
	return nil
}

// teardown closes the transport. Worker goroutine only.
func (s *Session) teardown() {
	if s.transport == nil {
		return
	}
	if err := s.transport.Close(); err != nil {
		tool.DefaultLogger.Debugf("Closing connection to %s: %v", s.endpoint, err)
	}
	s.transport = nil
	s.stale = false
	s.connected.Store(false)
	s.current.Store(nil)
}

// Disconnect releases the connection after in-flight commands finish. Safe to call repeatedly.
func (s *Session) Disconnect() {
	_ = s.submit(context.Background(), func(context.Context) {
		if s.transport != nil {
			tool.DefaultLogger.Infof("Disconnected from %s", s.endpoint)
		}
		s.teardown()
	})
}

// Close disconnects and stops the worker. The session cannot be used afterwards.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.stopped
}

// RunCommand executes command with the given timeout, 0 meaning the session default.
// Timeouts are retried with backoff; remote failures and auth problems are not.
func (s *Session) RunCommand(ctx context.Context, command string, timeout time.Duration) (CommandOutput, error) {
	var (
		out CommandOutput
		err error
	)
	if qerr := s.submit(ctx, func(ctx context.Context) {
		out, err = s.exec(ctx, func() string { return command }, "", timeout)
	}); qerr != nil {
		return CommandOutput{Command: command}, qerr
	}
	return out, err
}

// Run executes a command from the vocabulary.
func (s *Session) Run(ctx context.Context, cmd Command) (CommandOutput, error) {
	return s.RunCommand(ctx, cmd.Line, cmd.Timeout)
}

// exec runs on the worker goroutine. nextCommand is called once per attempt.
func (s *Session) exec(ctx context.Context, nextCommand func() string, stdin string, timeout time.Duration) (CommandOutput, error) {
	if timeout <= 0 {
		timeout = s.opts.CommandTimeout
	}
	if err := s.ensureTransport(ctx); err != nil {
		return CommandOutput{Command: nextCommand()}, err
	}
	b := newBackoff(s.opts.InitialBackoff, s.opts.MaxBackoff, jitterFactor)
	for attempt := 1; ; attempt++ {
		command := nextCommand()
		out, err := s.runOnce(ctx, command, stdin, timeout)
		if err == nil || !errors.Is(err, ErrTimeout) || attempt >= s.opts.MaxAttempts {
			return out, err
		}
		delay := b.Next()
		tool.DefaultLogger.Debugf("%q timed out (attempt %d/%d), retrying in %s", command, attempt, s.opts.MaxAttempts, delay)
		if serr := sleepCtx(ctx, delay); serr != nil {
			return out, serr
		}
	}
}

// ensureTransport reconnects when a cancelled command left the connection in doubt.
func (s *Session) ensureTransport(ctx context.Context) error {
	if s.transport == nil {
		return ErrNotConnected
	}
	if !s.stale {
		return nil
	}
	endpoint := s.endpoint
	tool.DefaultLogger.Debugf("Reconnecting to %s after cancelled command", endpoint)
	s.teardown()
	return s.dial(ctx, endpoint)
}

func (s *Session) runOnce(ctx context.Context, command, stdin string, timeout time.Duration) (CommandOutput, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return CommandOutput{Command: command}, err
		}
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := s.transport.Run(cctx, command, stdin)
	switch {
	case err == nil && out.ExitCode == 0:
		tool.DefaultLogger.Debugf("%q ok in %s", command, out.Duration.Round(time.Millisecond))
		return out, nil
	case err == nil:
		return out, &RemoteError{Command: command, ExitCode: out.ExitCode, Stderr: strings.TrimSpace(out.Stderr)}
	case ctx.Err() != nil:
		s.stale = true
		return out, ctx.Err()
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		return out, fmt.Errorf("%w: %q after %s", ErrTimeout, command, timeout)
	default:
		tool.DefaultLogger.Errorf("Connection to %s failed during %q: %v", s.endpoint, command, err)
		s.teardown()
		if errors.Is(err, ErrConnectionLost) {
			return out, err
		}
		return out, fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
}

// ReadFile returns the content of a remote file.
func (s *Session) ReadFile(ctx context.Context, path string) (string, error) {
	out, err := s.RunCommand(ctx, "cat "+shellQuote(path), 0)
	if err != nil {
		return "", &IOError{Op: "read", Path: path, Err: err}
	}
	return out.Stdout, nil
}

// WriteFile replaces a remote file. Content goes to a temporary file next to the target
// that is renamed over it only when its size matches, so a cut off stream leaves the old
// file intact. Every attempt writes its own temporary file.
func (s *Session) WriteFile(ctx context.Context, path, content string) error {
	var err error
	if qerr := s.submit(ctx, func(ctx context.Context) {
		_, err = s.exec(ctx, func() string { return writeCommand(path, len(content)) }, content, 0)
	}); qerr != nil {
		err = qerr
	}
	if err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	tool.DefaultLogger.Debugf("Wrote %d bytes to %s", len(content), path)
	return nil
}

// Hostname queries the device host name.
func (s *Session) Hostname(ctx context.Context) (string, error) {
	out, err := s.Run(ctx, CmdHostname)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Stdout), nil
}

// writeCommand builds the install command for size bytes arriving on stdin.
func writeCommand(path string, size int) string {
	tmp := shellQuote(path + ".tmp-" + tool.GenerateShortID())
	return fmt.Sprintf(`cat > %[1]s && [ "$(wc -c < %[1]s)" -eq %[3]d ] && mv -f %[1]s %[2]s || { rm -f %[1]s; exit 1; }`,
		tmp, shellQuote(path), size)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
