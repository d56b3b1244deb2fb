package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/moyoez/devconf/types"
)

// SSHDialer connects with password and keyboard-interactive auth.
type SSHDialer struct {
	// HostKeyCallback defaults to accepting any key: devices regenerate host keys on every reflash.
	HostKeyCallback ssh.HostKeyCallback
}

func (d SSHDialer) Dial(ctx context.Context, endpoint types.DeviceEndpoint) (Transport, error) {
	addr := endpoint.Addr()
	hostKey := d.HostKeyCallback
	if hostKey == nil {
		hostKey = ssh.InsecureIgnoreHostKey()
	}
	password := endpoint.Password
	cfg := &ssh.ClientConfig{
		User: endpoint.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKey,
	}
	if deadline, ok := ctx.Deadline(); ok {
		cfg.Timeout = time.Until(deadline)
	}

	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Endpoint: addr, Kind: ErrUnreachable, Cause: err}
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		kind := ErrUnreachable
		if strings.Contains(err.Error(), "unable to authenticate") {
			kind = ErrAuthFailed
		}
		return nil, &ConnectionError{Endpoint: addr, Kind: kind, Cause: err}
	}
	_ = conn.SetDeadline(time.Time{})
	return &sshTransport{client: ssh.NewClient(c, chans, reqs)}, nil
}

type sshTransport struct {
	client *ssh.Client
}

// Run opens one channel per command so a killed command never leaves state behind in another.
func (t *sshTransport) Run(ctx context.Context, command, stdin string) (CommandOutput, error) {
	out := CommandOutput{Command: command}
	sess, err := t.client.NewSession()
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr
	if stdin != "" {
		sess.Stdin = strings.NewReader(stdin)
	}

	start := time.Now()
	if err := sess.Start(command); err != nil {
		return out, fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	waitErr := make(chan error, 1)
	go func() {
		waitErr <- sess.Wait()
	}()

	select {
	case err := <-waitErr:
		out.Duration = time.Since(start)
		out.Stdout = stdout.String()
		out.Stderr = stderr.String()
		var exitErr *ssh.ExitError
		switch {
		case err == nil:
			return out, nil
		case errors.As(err, &exitErr):
			out.ExitCode = exitErr.ExitStatus()
			return out, nil
		default:
			return out, fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGKILL)
		_ = sess.Close()
		return out, ctx.Err()
	}
}

func (t *sshTransport) Close() error {
	return t.client.Close()
}
