// Package share keeps the last known status of devices the operator has probed or connected to.
package share

import (
	"slices"
	"strings"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/moyoez/devconf/notify"
	"github.com/moyoez/devconf/tool"
	"github.com/moyoez/devconf/types"
)

const (
	DefaultTTL = 300 * time.Second // set 300 seconds.
)

var (
	DeviceStatuses = ttlworker.NewCache[string, types.DeviceStatus](DefaultTTL)
)

// SetDeviceStatus records status and sends a notification when the device is new or changed.
func SetDeviceStatus(status types.DeviceStatus) {
	if status.LastSeen.IsZero() {
		status.LastSeen = time.Now()
	}
	existing, exists := GetDeviceStatus(status.Host)
	isNew := !exists
	isChanged := exists && hasStatusChanged(existing, status)

	DeviceStatuses.Set(status.Host, status)
	tool.DefaultLogger.Debugf("Set device status: %s reachable=%t connected=%t", status.Host, status.Reachable, status.Connected)

	if isNew || isChanged {
		if err := notify.SendDeviceStatus(status, isNew); err != nil {
			tool.DefaultLogger.Debugf("Failed to send device notification: %v", err)
		}
	}
}

func hasStatusChanged(a, b types.DeviceStatus) bool {
	return a.Reachable != b.Reachable ||
		a.Connected != b.Connected ||
		a.Hostname != b.Hostname ||
		a.Kind != b.Kind ||
		a.Message != b.Message
}

func GetDeviceStatus(host string) (types.DeviceStatus, bool) {
	data := DeviceStatuses.Get(host)
	return data, data.Host != ""
}

// ForgetDevice drops the cached status of host.
func ForgetDevice(host string) {
	DeviceStatuses.Delete(host)
}

// ListDeviceStatuses returns every cached status ordered by host.
func ListDeviceStatuses() []types.DeviceStatus {
	list := make([]types.DeviceStatus, 0)
	err := DeviceStatuses.Range(func(_ string, v types.DeviceStatus) error {
		list = append(list, v)
		return nil
	})
	if err != nil {
		return nil
	}
	slices.SortFunc(list, func(a, b types.DeviceStatus) int {
		return strings.Compare(a.Host, b.Host)
	})
	return list
}
