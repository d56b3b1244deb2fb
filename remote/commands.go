package remote

import (
	"time"

	"github.com/moyoez/devconf/types"
)

// Command is one entry of the fixed remote vocabulary. A zero Timeout uses the session default.
type Command struct {
	Name    string
	Line    string
	Timeout time.Duration
}

// Service is a device daemon that reads one of the config files.
type Service string

const (
	ServiceWifibroadcast Service = "wifibroadcast"
	ServiceMajestic      Service = "majestic"
	ServiceTelemetry     Service = "telemetry"
)

var (
	CmdReboot       = Command{Name: "reboot", Line: "reboot", Timeout: 5 * time.Second}
	CmdHostname     = Command{Name: "hostname", Line: "hostname"}
	CmdGenerateKeys = Command{Name: "keygen", Line: "cd /etc && wfb_keygen"}
	CmdUARTDisable  = Command{Name: "uart-disable", Line: `sed -i 's/^console::respawn/#console::respawn/' /etc/inittab`}
	CmdUARTEnable   = Command{Name: "uart-enable", Line: `sed -i 's/^#console::respawn/console::respawn/' /etc/inittab`}
	CmdUpgrade      = Command{Name: "upgrade", Line: "sysupgrade -k -r -n --force_ver", Timeout: 10 * time.Minute}
)

var cameraRestarts = map[Service]Command{
	ServiceWifibroadcast: {Name: "restart-wifibroadcast", Line: "wifibroadcast stop; wifibroadcast start", Timeout: 30 * time.Second},
	ServiceMajestic:      {Name: "restart-majestic", Line: "/etc/init.d/S95majestic restart", Timeout: 30 * time.Second},
	ServiceTelemetry:     {Name: "restart-telemetry", Line: "telemetry stop; telemetry start", Timeout: 30 * time.Second},
}

var groundStationRestarts = map[Service]Command{
	ServiceWifibroadcast: {Name: "restart-wifibroadcast", Line: "systemctl restart openipc", Timeout: 30 * time.Second},
	ServiceTelemetry:     {Name: "restart-telemetry", Line: "systemctl restart openipc", Timeout: 30 * time.Second},
}

// RestartCommand returns how to restart service on the given kind of device.
func RestartCommand(kind types.DeviceKind, service Service) (Command, bool) {
	var table map[Service]Command
	switch kind {
	case types.DeviceKindCamera:
		table = cameraRestarts
	case types.DeviceKindGroundStation:
		table = groundStationRestarts
	default:
		return Command{}, false
	}
	cmd, ok := table[service]
	return cmd, ok
}

// ServiceFor names the daemon that must restart after the category's file changes.
func ServiceFor(c types.Category) (Service, bool) {
	switch c {
	case types.CategoryWfbConf, types.CategoryWifiBroadcast:
		return ServiceWifibroadcast, true
	case types.CategoryMajestic:
		return ServiceMajestic, true
	case types.CategoryTelemetry:
		return ServiceTelemetry, true
	}
	return "", false
}

// Vocabulary lists the commands that the control api may run by name.
func Vocabulary() map[string]Command {
	cmds := map[string]Command{}
	for _, c := range []Command{CmdReboot, CmdHostname, CmdGenerateKeys, CmdUARTDisable, CmdUARTEnable, CmdUpgrade} {
		cmds[c.Name] = c
	}
	return cmds
}
