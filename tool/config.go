package tool

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/moyoez/devconf/types"
)

var (
	ConfigPath    = "config.yaml" // be aware that it can be changed, default to ./config.yaml
	CurrentConfig types.AppConfig
	configMu      sync.RWMutex
)

func defaultConfig() types.AppConfig {
	return types.AppConfig{
		IPAddress:      "",
		Port:           types.DefaultSSHPort,
		Username:       "root", // openipc firmware ships with root
		Password:       "",     // never defaulted, the operator types it once
		DeviceType:     string(types.DeviceKindCamera),
		CommandTimeout: 15, // seconds, sysupgrade passes its own longer timeout
		ConnectTimeout: 10,
		ProbeTimeout:   1500, // milliseconds
		CommandRate:    10,
		PresetsDir:     "presets",
		ListenPort:     53380,
	}
}

func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := defaultConfig()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file doesn't exist, create with default values
			if writeErr := writeDefaultConfig(path, cfg); writeErr != nil {
				return cfg, fmt.Errorf("config file not found, and failed to generate default config: %v", writeErr)
			}
			DefaultLogger.Infof("Created new config file at %s", path)
			SetCurrentConfig(cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %v", err)
	}
	fillZeroValues(&cfg)

	SetCurrentConfig(cfg)
	return cfg, nil
}

// fillZeroValues restores defaults for tuning fields an older file left out.
func fillZeroValues(cfg *types.AppConfig) {
	def := defaultConfig()
	if cfg.Port <= 0 {
		cfg.Port = def.Port
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = def.CommandTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}
	if cfg.CommandRate < 0 {
		cfg.CommandRate = 0
	}
	if cfg.PresetsDir == "" {
		cfg.PresetsDir = def.PresetsDir
	}
	if cfg.ListenPort <= 0 {
		cfg.ListenPort = def.ListenPort
	}
}

func writeDefaultConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// SetCurrentConfig replaces the in-memory settings without touching the file.
func SetCurrentConfig(cfg types.AppConfig) {
	configMu.Lock()
	defer configMu.Unlock()
	CurrentConfig = cfg
}

// GetCurrentConfig returns a copy of the in-memory settings.
func GetCurrentConfig() types.AppConfig {
	configMu.RLock()
	defer configMu.RUnlock()
	return CurrentConfig
}

// PersistAppConfig updates in-memory settings and writes config.yaml.
func PersistAppConfig(cfg types.AppConfig) error {
	SetCurrentConfig(cfg)
	if err := writeDefaultConfig(ConfigPath, cfg); err != nil {
		DefaultLogger.Warnf("Failed to persist config: %v", err)
		return err
	}
	return nil
}

// PersistEndpoint stores the last used device so the next run starts with it.
func PersistEndpoint(e types.DeviceEndpoint) error {
	cfg := GetCurrentConfig()
	cfg.SetEndpoint(e)
	return PersistAppConfig(cfg)
}
