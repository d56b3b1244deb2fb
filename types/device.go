package types

import (
	"net"
	"strconv"
)

// DeviceKind is the kind of remote unit a session talks to.
type DeviceKind string

const (
	DeviceKindNone          DeviceKind = "none"
	DeviceKindCamera        DeviceKind = "camera"
	DeviceKindGroundStation DeviceKind = "ground-station"
)

const DefaultSSHPort = 22

// ParseDeviceKind maps a settings value to a DeviceKind, unknown values become none.
func ParseDeviceKind(s string) DeviceKind {
	switch DeviceKind(s) {
	case DeviceKindCamera, DeviceKindGroundStation:
		return DeviceKind(s)
	}
	// older settings files used the gui labels
	switch s {
	case "Camera", "OpenIPC":
		return DeviceKindCamera
	case "Radxa", "NVR", "GroundStation":
		return DeviceKindGroundStation
	}
	return DeviceKindNone
}

// DeviceEndpoint identifies the device a remote session connects to.
type DeviceEndpoint struct {
	Host     string     `json:"ip_address" yaml:"ipAddress"`
	Port     int        `json:"port" yaml:"port"`
	Username string     `json:"username" yaml:"username"`
	Password string     `json:"-" yaml:"password"`
	Kind     DeviceKind `json:"device_type" yaml:"deviceType"`
}

func (e *DeviceEndpoint) SetHost(host string) {
	e.Host = host
}

func (e *DeviceEndpoint) SetPort(port int) {
	e.Port = port
}

func (e *DeviceEndpoint) SetCredentials(username, password string) {
	e.Username = username
	e.Password = password
}

func (e *DeviceEndpoint) SetKind(kind DeviceKind) {
	e.Kind = kind
}

// CanConnect reports whether enough is known to attempt a connection.
func (e DeviceEndpoint) CanConnect() bool {
	return e.Host != "" && e.Username != "" && e.Password != ""
}

// Addr returns host:port, using the ssh default port when none is set.
func (e DeviceEndpoint) Addr() string {
	port := e.Port
	if port <= 0 {
		port = DefaultSSHPort
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(port))
}

// Same reports whether two endpoints address the same device with the same identity.
func (e DeviceEndpoint) Same(o DeviceEndpoint) bool {
	return e.Addr() == o.Addr() &&
		e.Username == o.Username &&
		e.Password == o.Password &&
		e.Kind == o.Kind
}

func (e DeviceEndpoint) String() string {
	return e.Username + "@" + e.Addr()
}
