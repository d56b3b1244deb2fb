package discover

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/devconf/notify"
	"github.com/moyoez/devconf/share"
	"github.com/moyoez/devconf/types"
)

func TestGenerateNetworkIPs(t *testing.T) {
	_, slash24, err := net.ParseCIDR("192.168.1.77/24")
	require.NoError(t, err)
	ips := generateNetworkIPs(slash24)
	require.Len(t, ips, 254)
	assert.Equal(t, "192.168.1.1", ips[0])
	assert.Equal(t, "192.168.1.254", ips[253])

	_, slash30, err := net.ParseCIDR("10.0.0.5/30")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.5", "10.0.0.6"}, generateNetworkIPs(slash30))

	_, host, err := net.ParseCIDR("10.0.0.1/32")
	require.NoError(t, err)
	assert.Empty(t, generateNetworkIPs(host))
}

func TestGenerateNetworkIPsWideNetworkUsesOwnSlash24(t *testing.T) {
	// interface addresses keep the host part, unlike ParseCIDR networks
	slash16 := &net.IPNet{IP: net.ParseIP("10.0.5.3").To4(), Mask: net.CIDRMask(16, 32)}
	ips := generateNetworkIPs(slash16)
	require.Len(t, ips, 254)
	assert.Equal(t, "10.0.5.1", ips[0])
	assert.Equal(t, "10.0.5.254", ips[253])
	assert.Contains(t, ips, "10.0.5.3")
}

func TestScanTargetsRecordsResponders(t *testing.T) {
	notify.SetUseNotify(false)
	t.Cleanup(func() {
		notify.SetUseNotify(true)
		share.ForgetDevice("10.1.0.3")
	})

	var probed []string
	s := Scanner{
		Kind:        types.DeviceKindCamera,
		Concurrency: 1,
		Probe: func(_ context.Context, addr string) bool {
			probed = append(probed, addr)
			return addr == "10.1.0.3:22"
		},
	}
	found := s.ScanTargets(context.Background(), []string{"10.1.0.2", "10.1.0.3", "10.1.0.4"})

	assert.Equal(t, []string{"10.1.0.2:22", "10.1.0.3:22", "10.1.0.4:22"}, probed)
	require.Len(t, found, 1)
	assert.Equal(t, "10.1.0.3", found[0].Host)
	st, ok := share.GetDeviceStatus("10.1.0.3")
	assert.True(t, ok)
	assert.True(t, st.Reachable)
	assert.Equal(t, types.DeviceKindCamera, st.Kind)
}

func TestScanTargetsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := Scanner{Probe: func(context.Context, string) bool { return true }}
	assert.Empty(t, s.ScanTargets(ctx, []string{"10.2.0.1", "10.2.0.2"}))
}
