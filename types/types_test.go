package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDeviceKind(t *testing.T) {
	assert.Equal(t, DeviceKindCamera, ParseDeviceKind("camera"))
	assert.Equal(t, DeviceKindCamera, ParseDeviceKind("OpenIPC"))
	assert.Equal(t, DeviceKindGroundStation, ParseDeviceKind("ground-station"))
	assert.Equal(t, DeviceKindGroundStation, ParseDeviceKind("NVR"))
	assert.Equal(t, DeviceKindNone, ParseDeviceKind("toaster"))
}

func TestEndpointCanConnectIsDerived(t *testing.T) {
	var e DeviceEndpoint
	assert.False(t, e.CanConnect())
	e.SetHost("192.168.1.10")
	e.SetCredentials("root", "")
	assert.False(t, e.CanConnect())
	e.SetCredentials("root", "12345")
	assert.True(t, e.CanConnect())
	assert.Equal(t, "192.168.1.10:22", e.Addr())
	e.SetPort(2222)
	assert.Equal(t, "root@192.168.1.10:2222", e.String())
	assert.False(t, e.Same(DeviceEndpoint{Host: "192.168.1.10", Username: "root", Password: "12345"}))
}

func TestCategoryForFile(t *testing.T) {
	cases := map[string]Category{
		"wfb.conf":          CategoryWfbConf,
		"/etc/wfb.conf":     CategoryWfbConf,
		"majestic.yaml":     CategoryMajestic,
		"wifibroadcast.cfg": CategoryWifiBroadcast,
		"screen-mode":       CategoryScreenMode,
		"telemetry.conf":    CategoryTelemetry,
		"telemetry":         CategoryTelemetry,
	}
	for name, want := range cases {
		got, ok := CategoryForFile(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := CategoryForFile("vtx.conf")
	assert.False(t, ok)
}

func TestCategoriesHaveFiles(t *testing.T) {
	for _, c := range Categories {
		f, ok := c.File()
		assert.True(t, ok, c)
		assert.Equal(t, c, f.Category)
	}
	assert.False(t, Category("vtx").Valid())
}
