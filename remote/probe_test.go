package remote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/devconf/types"
)

func TestProbeUnreachableHost(t *testing.T) {
	// 192.0.2.0/24 is TEST-NET-1 and never routed.
	endpoint := types.DeviceEndpoint{Host: "192.0.2.1", Port: 22}
	timeout := 300 * time.Millisecond

	start := time.Now()
	ok := Probe(context.Background(), endpoint, timeout)
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.Less(t, elapsed, timeout+500*time.Millisecond)
}

func TestProbeEmptyHost(t *testing.T) {
	assert.False(t, Probe(context.Background(), types.DeviceEndpoint{}, time.Second))
}

func TestSSHDialRefused(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := SSHDialer{}.Dial(ctx, types.DeviceEndpoint{Host: "127.0.0.1", Port: 1, Username: "root", Password: "12345"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)
	var ce *ConnectionError
	assert.ErrorAs(t, err, &ce)
}

func TestRestartCommands(t *testing.T) {
	cmd, ok := RestartCommand(types.DeviceKindCamera, ServiceMajestic)
	require.True(t, ok)
	assert.Equal(t, "/etc/init.d/S95majestic restart", cmd.Line)

	_, ok = RestartCommand(types.DeviceKindGroundStation, ServiceMajestic)
	assert.False(t, ok, "ground stations do not run majestic")

	_, ok = RestartCommand(types.DeviceKindNone, ServiceWifibroadcast)
	assert.False(t, ok)

	svc, ok := ServiceFor(types.CategoryWifiBroadcast)
	require.True(t, ok)
	assert.Equal(t, ServiceWifibroadcast, svc)
	_, ok = ServiceFor(types.CategoryScreenMode)
	assert.False(t, ok)
}
