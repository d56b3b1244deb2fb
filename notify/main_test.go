package notify

import (
	"encoding/binary"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/devconf/bus"
	"github.com/moyoez/devconf/types"
)

// listen serves one reply per connection and hands decoded notifications to the returned channel.
func listen(t *testing.T, reply string) (string, <-chan types.Notification) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notify.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	got := make(chan types.Notification, 8)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			var size [4]byte
			if _, err := io.ReadFull(conn, size[:]); err == nil {
				body := make([]byte, binary.LittleEndian.Uint32(size[:]))
				if _, err := io.ReadFull(conn, body); err == nil {
					var n types.Notification
					if sonic.Unmarshal(body, &n) == nil {
						got <- n
					}
				}
			}
			_, _ = conn.Write([]byte(reply))
			_ = conn.Close()
		}
	}()
	return path, got
}

type recorder struct {
	got []*types.Notification
}

func (r *recorder) Broadcast(n *types.Notification) {
	r.got = append(r.got, n)
}

func TestSendNotificationFraming(t *testing.T) {
	path, got := listen(t, `{"status":"ok"}`)

	err := SendNotification(&types.Notification{Type: types.NotifyTypeDeviceStatus, Title: "hello"}, path)
	require.NoError(t, err)

	n := <-got
	assert.Equal(t, types.NotifyTypeDeviceStatus, n.Type)
	assert.Equal(t, "hello", n.Title)
}

func TestSendNotificationServerError(t *testing.T) {
	path, _ := listen(t, `{"error":"busy"}`)

	err := SendNotification(&types.Notification{Type: types.NotifyTypeDeviceStatus}, path)
	assert.ErrorContains(t, err, "busy")
}

func TestSendNotificationMissingSocket(t *testing.T) {
	err := SendNotification(&types.Notification{}, filepath.Join(t.TempDir(), "absent.sock"))
	assert.ErrorIs(t, err, ErrSocketMissing)
}

func TestForwardRelaysBusEvents(t *testing.T) {
	path, got := listen(t, `{}`)
	rec := &recorder{}
	SetHub(rec)
	t.Cleanup(func() { SetHub(nil) })

	b := bus.New()
	sub := Forward(b, path)
	defer sub.Unsubscribe()

	require.NoError(t, b.Publish(types.CategoryMajestic, "video0:\n  fps: 60\n"))

	n := <-got
	assert.Equal(t, types.NotifyTypeContentUpdated, n.Type)
	assert.Equal(t, "majestic", n.Data["category"])
	assert.Equal(t, "video0:\n  fps: 60\n", n.Data["content"])
	require.Len(t, rec.got, 1)
	assert.True(t, NotifyWSEnabled())
}

func TestContentUpdatedTruncates(t *testing.T) {
	big := strings.Repeat("a=b\n", MaxContentLen)
	n := ContentUpdated(types.ContentUpdateEvent{Category: types.CategoryWfbConf, Content: big})
	assert.Len(t, n.Data["content"], MaxContentLen)
	assert.Equal(t, true, n.Data["truncated"])
}
