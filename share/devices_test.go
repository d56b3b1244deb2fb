package share

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moyoez/devconf/notify"
	"github.com/moyoez/devconf/types"
)

type recorder struct {
	got []*types.Notification
}

func (r *recorder) Broadcast(n *types.Notification) {
	r.got = append(r.got, n)
}

func TestSetDeviceStatusNotifiesOnChange(t *testing.T) {
	notify.SetUseNotify(false)
	rec := &recorder{}
	notify.SetHub(rec)
	t.Cleanup(func() {
		notify.SetHub(nil)
		notify.SetUseNotify(true)
		ForgetDevice("10.0.0.2")
		ForgetDevice("10.0.0.1")
	})

	SetDeviceStatus(types.DeviceStatus{Host: "10.0.0.2", Reachable: true, Kind: types.DeviceKindCamera})
	SetDeviceStatus(types.DeviceStatus{Host: "10.0.0.2", Reachable: true, Kind: types.DeviceKindCamera})
	SetDeviceStatus(types.DeviceStatus{Host: "10.0.0.2", Reachable: true, Connected: true, Kind: types.DeviceKindCamera})
	SetDeviceStatus(types.DeviceStatus{Host: "10.0.0.1", Kind: types.DeviceKindGroundStation})

	assert.Len(t, rec.got, 3)
	assert.Equal(t, true, rec.got[0].Data["isNew"])
	assert.Equal(t, false, rec.got[1].Data["isNew"])

	st, ok := GetDeviceStatus("10.0.0.2")
	assert.True(t, ok)
	assert.True(t, st.Connected)
	assert.False(t, st.LastSeen.IsZero())

	list := ListDeviceStatuses()
	if assert.Len(t, list, 2) {
		assert.Equal(t, "10.0.0.1", list[0].Host)
		assert.Equal(t, "10.0.0.2", list[1].Host)
	}

	ForgetDevice("10.0.0.1")
	_, ok = GetDeviceStatus("10.0.0.1")
	assert.False(t, ok)
}
