package models

import (
	"sync"

	"github.com/moyoez/devconf/api/notifyhub"
	"github.com/moyoez/devconf/notify"
)

var (
	notifyHubMu sync.RWMutex
	notifyHub   *notifyhub.Hub
)

// SetNotifyHub installs the websocket hub and registers it with notify.
func SetNotifyHub(h *notifyhub.Hub) {
	notifyHubMu.Lock()
	defer notifyHubMu.Unlock()
	notifyHub = h
	if h == nil {
		notify.SetHub(nil)
		return
	}
	notify.SetHub(h)
}

// GetNotifyHub returns the notify WebSocket hub, or nil if not set.
func GetNotifyHub() *notifyhub.Hub {
	notifyHubMu.RLock()
	defer notifyHubMu.RUnlock()
	return notifyHub
}
