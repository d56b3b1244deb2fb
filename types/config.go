package types

import "time"

// AppConfig is the local settings file. It holds the last used device and engine tuning.
type AppConfig struct {
	IPAddress        string `yaml:"ipAddress"`
	Port             int    `yaml:"port"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	DeviceType       string `yaml:"deviceType"`
	CommandTimeout   int    `yaml:"commandTimeout"` // seconds per remote command
	ConnectTimeout   int    `yaml:"connectTimeout"` // seconds for dial + auth
	ProbeTimeout     int    `yaml:"probeTimeout"`   // milliseconds
	CommandRate      int    `yaml:"commandRate"`    // remote commands per second, 0 disables pacing
	PresetsDir       string `yaml:"presetsDir"`
	PresetRepository string `yaml:"presetRepository,omitempty"`
	NotifySocket     string `yaml:"notifySocket,omitempty"`
	ListenPort       int    `yaml:"listenPort"`
}

// Endpoint builds the device endpoint described by the settings.
func (c AppConfig) Endpoint() DeviceEndpoint {
	return DeviceEndpoint{
		Host:     c.IPAddress,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		Kind:     ParseDeviceKind(c.DeviceType),
	}
}

func (c AppConfig) CommandTimeoutDuration() time.Duration {
	return time.Duration(c.CommandTimeout) * time.Second
}

func (c AppConfig) ConnectTimeoutDuration() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}

func (c AppConfig) ProbeTimeoutDuration() time.Duration {
	return time.Duration(c.ProbeTimeout) * time.Millisecond
}

// SetEndpoint copies an endpoint back into the settings.
func (c *AppConfig) SetEndpoint(e DeviceEndpoint) {
	c.IPAddress = e.Host
	c.Port = e.Port
	c.Username = e.Username
	c.Password = e.Password
	c.DeviceType = string(e.Kind)
}

// Config holds runtime overrides from CLI flags
type Config struct {
	Log             string
	UseConfigPath   string
	UseHost         string
	UseUsername     string
	UsePassword     string
	UseDeviceType   string
	UsePresetsDir   string
	UseListenPort   int
	UseNotifySocket string
	SkipNotify      bool   // if true, do not forward events to the notify socket.
	ApplyPreset     string // apply the named preset once connected, then keep serving.
	NoConnect       bool   // do not connect at startup.
}
