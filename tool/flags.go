package tool

import (
	"flag"

	"github.com/moyoez/devconf/types"
)

// SetFlags parses CLI flags and returns the override config.
func SetFlags() types.Config {
	var cfg types.Config
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	flag.StringVar(&cfg.UseHost, "useHost", "", "device ip address or host name")
	flag.StringVar(&cfg.UseUsername, "useUsername", "", "ssh user name")
	flag.StringVar(&cfg.UsePassword, "usePassword", "", "ssh password")
	flag.StringVar(&cfg.UseDeviceType, "useDeviceType", "", "device kind: camera|ground-station")
	flag.StringVar(&cfg.UsePresetsDir, "usePresetsDir", "", "directory holding preset folders")
	flag.IntVar(&cfg.UseListenPort, "useListenPort", 0, "control api port on localhost")
	flag.StringVar(&cfg.UseNotifySocket, "useNotifySocket", "", "unix socket that receives content notifications")
	flag.BoolVar(&cfg.SkipNotify, "skipNotify", false, "if true, do not forward notifications to the unix socket")
	flag.StringVar(&cfg.ApplyPreset, "applyPreset", "", "apply the named preset after connecting")
	flag.BoolVar(&cfg.NoConnect, "noConnect", false, "start without connecting to the device")
	flag.Parse()
	return cfg
}

// ApplyFlagOverrides merges non-empty flags into the settings.
func ApplyFlagOverrides(cfg *types.AppConfig, flags types.Config) {
	if flags.UseHost != "" {
		cfg.IPAddress = flags.UseHost
	}
	if flags.UseUsername != "" {
		cfg.Username = flags.UseUsername
	}
	if flags.UsePassword != "" {
		cfg.Password = flags.UsePassword
	}
	if flags.UseDeviceType != "" {
		cfg.DeviceType = flags.UseDeviceType
	}
	if flags.UsePresetsDir != "" {
		cfg.PresetsDir = flags.UsePresetsDir
	}
	if flags.UseListenPort > 0 {
		cfg.ListenPort = flags.UseListenPort
	}
	if flags.UseNotifySocket != "" {
		cfg.NotifySocket = flags.UseNotifySocket
	}
}
