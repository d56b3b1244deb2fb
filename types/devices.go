package types

import "time"

// DeviceStatus is the last known reachability and identity of a device.
type DeviceStatus struct {
	Host      string     `json:"ip_address"`
	Reachable bool       `json:"reachable"`
	Connected bool       `json:"connected"`
	Hostname  string     `json:"hostname,omitempty"`
	Kind      DeviceKind `json:"device_type"`
	LastSeen  time.Time  `json:"last_seen"`
	Message   string     `json:"message,omitempty"`
}
