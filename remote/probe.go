package remote

import (
	"context"
	"errors"
	"net"
	"runtime"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/moyoez/devconf/tool"
	"github.com/moyoez/devconf/types"
)

const DefaultProbeTimeout = 1500 * time.Millisecond

var errEchoUnavailable = errors.New("icmp echo unavailable")

// Probe reports whether the device answers an ICMP echo within timeout. When this process
// may not send echo requests at all, it falls back to a TCP connect on the ssh port.
// It never fails loudly: every problem is a debug log and false.
func Probe(ctx context.Context, endpoint types.DeviceEndpoint, timeout time.Duration) bool {
	if endpoint.Host == "" {
		return false
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ok, err := icmpEcho(ctx, endpoint.Host, timeout)
	if err == nil {
		if !ok {
			tool.DefaultLogger.Debugf("probe %s: no echo reply within %s", endpoint.Host, timeout)
		}
		return ok
	}
	tool.DefaultLogger.Debugf("probe %s: %v, trying tcp %s", endpoint.Host, err, endpoint.Addr())

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", endpoint.Addr())
	if err != nil {
		tool.DefaultLogger.Debugf("probe %s: %v", endpoint.Addr(), err)
		return false
	}
	_ = conn.Close()
	return true
}

func icmpEcho(ctx context.Context, host string, timeout time.Duration) (bool, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return false, err
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(runtime.GOOS == "windows")
	if err := pinger.RunWithContext(ctx); err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		return false, errors.Join(errEchoUnavailable, err)
	}
	return pinger.Statistics().PacketsRecv > 0, nil
}
