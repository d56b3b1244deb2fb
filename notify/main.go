// Package notify forwards config and device events to a local Unix socket listener
// and to websocket clients.
package notify

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/moyoez/devconf/bus"
	"github.com/moyoez/devconf/tool"
	"github.com/moyoez/devconf/types"
)

// MaxPayloadSize is the largest notification accepted on the socket.
const MaxPayloadSize = 64 * 1024

// MaxContentLen bounds the config content embedded in a content_updated notification.
const MaxContentLen = 16 * 1024

var (
	DefaultUnixSocketPath = "/tmp/devconf-notify.sock"
	UnixSocketTimeout     = 3 * time.Second
	UseNotify             = true

	ErrSocketMissing = errors.New("notify socket not found")
)

// Broadcaster receives every notification, typically the websocket hub.
type Broadcaster interface {
	Broadcast(notification *types.Notification)
}

var (
	hubMu sync.RWMutex
	hub   Broadcaster
)

func SetUseNotify(use bool) {
	UseNotify = use
}

// SetSocketPath overrides the socket used when callers pass an empty path.
func SetSocketPath(path string) {
	if path != "" {
		DefaultUnixSocketPath = path
	}
}

// SetHub installs the websocket broadcaster. nil disables websocket delivery.
func SetHub(b Broadcaster) {
	hubMu.Lock()
	defer hubMu.Unlock()
	hub = b
}

// NotifyWSEnabled reports whether a websocket hub is installed.
func NotifyWSEnabled() bool {
	hubMu.RLock()
	defer hubMu.RUnlock()
	return hub != nil
}

// SendNotification delivers to the websocket hub and then to the Unix socket at socketPath.
func SendNotification(notification *types.Notification, socketPath string) error {
	hubMu.RLock()
	h := hub
	hubMu.RUnlock()
	if h != nil && notification != nil {
		h.Broadcast(notification)
	}
	if !UseNotify {
		return nil
	}
	if socketPath == "" {
		socketPath = DefaultUnixSocketPath
	}
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrSocketMissing, socketPath)
	}

	payload := []byte("{}")
	if notification != nil {
		var err error
		payload, err = sonic.Marshal(notification)
		if err != nil {
			return fmt.Errorf("failed to serialize notification: %v", err)
		}
	}
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("notification payload too large: %d bytes (max %d)", len(payload), MaxPayloadSize)
	}

	conn, err := net.DialTimeout("unix", socketPath, UnixSocketTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to Unix socket %s: %v", socketPath, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close Unix socket connection: %v", err)
		}
	}()
	if err := conn.SetDeadline(time.Now().Add(UnixSocketTimeout)); err != nil {
		tool.DefaultLogger.Errorf("Failed to set deadline: %v", err)
	}

	// 4 byte little-endian length, then the json body.
	frame := make([]byte, 4, 4+len(payload))
	binary.LittleEndian.PutUint32(frame, uint32(len(payload)))
	frame = append(frame, payload...)
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("failed to write to Unix socket: %v", err)
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read response from Unix socket: %v", err)
	}
	if n > 0 {
		var response map[string]any
		if err := sonic.Unmarshal(buf[:n], &response); err != nil {
			tool.DefaultLogger.Debugf("Unix socket response (raw): %s", string(buf[:n]))
		} else if msg, ok := response["error"].(string); ok && msg != "" {
			return fmt.Errorf("server returned error: %s", msg)
		}
	}
	if notification != nil {
		tool.DefaultLogger.Debugf("[UnixSocket] Notification sent: %s - %s", notification.Type, notification.Title)
	}
	return nil
}

// ContentUpdated builds the notification for a persisted config change.
func ContentUpdated(event types.ContentUpdateEvent) *types.Notification {
	content, truncated := event.Content, false
	if len(content) > MaxContentLen {
		content, truncated = content[:MaxContentLen], true
	}
	return &types.Notification{
		Type:    types.NotifyTypeContentUpdated,
		Title:   "Config Saved",
		Message: fmt.Sprintf("%s updated (%d bytes)", event.Category, len(event.Content)),
		Data: map[string]any{
			"category":  string(event.Category),
			"content":   content,
			"truncated": truncated,
		},
	}
}

// Forward subscribes to every topic and relays each update. Socket failures are logged only.
func Forward(b *bus.Bus, socketPath string) *bus.Subscription {
	return b.SubscribeAll(func(event types.ContentUpdateEvent) error {
		if err := SendNotification(ContentUpdated(event), socketPath); err != nil {
			tool.DefaultLogger.Debugf("Content notification for %s not delivered: %v", event.Category, err)
		}
		return nil
	})
}

// SendPresetApplied reports the outcome of a preset application.
func SendPresetApplied(summary types.AppliedSummary, applyErr error) error {
	n := &types.Notification{
		Type:    types.NotifyTypePresetApplied,
		Title:   "Preset Applied",
		Message: fmt.Sprintf("%s: %d files written", summary.Preset, len(summary.Written)),
		Data: map[string]any{
			"preset":    summary.Preset,
			"written":   summary.Written,
			"failed":    summary.Failed,
			"restarted": summary.Restarted,
		},
	}
	if applyErr != nil {
		n.Title = "Preset Failed"
		n.Message = fmt.Sprintf("%s: %v", summary.Preset, applyErr)
		n.Data["error"] = applyErr.Error()
	}
	return SendNotification(n, "")
}

// SendDeviceStatus reports a reachability or connection change.
func SendDeviceStatus(status types.DeviceStatus, isNew bool) error {
	title := "Device Updated"
	if isNew {
		title = "Device Found"
	}
	return SendNotification(&types.Notification{
		Type:    types.NotifyTypeDeviceStatus,
		Title:   title,
		Message: fmt.Sprintf("%s reachable=%t connected=%t", status.Host, status.Reachable, status.Connected),
		Data: map[string]any{
			"ip_address":  status.Host,
			"reachable":   status.Reachable,
			"connected":   status.Connected,
			"hostname":    status.Hostname,
			"device_type": string(status.Kind),
			"message":     status.Message,
			"isNew":       isNew,
		},
	}, "")
}
