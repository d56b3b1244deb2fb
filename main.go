package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moyoez/devconf/api"
	"github.com/moyoez/devconf/api/models"
	"github.com/moyoez/devconf/bus"
	"github.com/moyoez/devconf/notify"
	"github.com/moyoez/devconf/preset"
	"github.com/moyoez/devconf/remote"
	"github.com/moyoez/devconf/share"
	"github.com/moyoez/devconf/store"
	"github.com/moyoez/devconf/tool"
	"github.com/moyoez/devconf/types"
)

func main() {
	cfg := tool.SetFlags()
	appCfg, err := tool.LoadConfig(cfg.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	tool.ApplyFlagOverrides(&appCfg, cfg)
	tool.SetCurrentConfig(appCfg)

	// initialize logger
	tool.InitLogger()
	tool.SetLogMode(cfg.Log)

	if cfg.SkipNotify {
		notify.SetUseNotify(false)
	}
	notify.SetSocketPath(appCfg.NotifySocket)
	api.EnableNotifyWS()

	changes := bus.New()
	notify.Forward(changes, "")

	session := remote.NewSession(remote.SSHDialer{}, remote.OptionsFromConfig(appCfg))
	defer session.Close()

	configStore := store.New(changes)
	engine := preset.NewEngine(configStore)
	engine.OnApplied = func(summary types.AppliedSummary, err error) {
		if err := notify.SendPresetApplied(summary, err); err != nil {
			tool.DefaultLogger.Debugf("Preset notification not delivered: %v", err)
		}
	}

	models.SetRuntime(&models.Runtime{
		Session:        session,
		Store:          configStore,
		Engine:         engine,
		Repository:     preset.NewRepository(nil, 2),
		RequestTimeout: 2 * appCfg.CommandTimeoutDuration(),
	})
	models.SetPresetsDir(appCfg.PresetsDir)
	if list, err := models.ReloadPresets(); err != nil {
		tool.DefaultLogger.Warnf("No presets loaded from %s: %v", appCfg.PresetsDir, err)
	} else {
		tool.DefaultLogger.Infof("Loaded %d presets from %s", len(list), appCfg.PresetsDir)
	}

	apiServer := api.NewServer(appCfg.ListenPort)
	go func() {
		if err := apiServer.Start(); err != nil {
			tool.DefaultLogger.Fatalf("API server startup failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.NoConnect {
		connectAtStartup(ctx, session, appCfg.Endpoint())
	}
	if cfg.ApplyPreset != "" {
		applyAtStartup(ctx, engine, session, cfg.ApplyPreset)
	}

	<-ctx.Done()
	tool.DefaultLogger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		tool.DefaultLogger.Warnf("API server shutdown: %v", err)
	}
}

func connectAtStartup(ctx context.Context, session *remote.Session, endpoint types.DeviceEndpoint) {
	if !endpoint.CanConnect() {
		tool.DefaultLogger.Info("No device configured, waiting for /connect")
		return
	}
	status := types.DeviceStatus{Host: endpoint.Host, Kind: endpoint.Kind}
	if !session.Probe(ctx, endpoint) {
		status.Message = "no reply to probe"
		share.SetDeviceStatus(status)
		tool.DefaultLogger.Warnf("Device %s did not answer", endpoint)
		return
	}
	status.Reachable = true
	if err := session.Connect(ctx, endpoint); err != nil {
		status.Message = err.Error()
		share.SetDeviceStatus(status)
		tool.DefaultLogger.Errorf("Connecting to %s: %v", endpoint, err)
		return
	}
	status.Connected = true
	if hostname, err := session.Hostname(ctx); err == nil {
		status.Hostname = hostname
	}
	share.SetDeviceStatus(status)
	tool.DefaultLogger.Infof("Connected to %s (%s)", endpoint, status.Hostname)
}

func applyAtStartup(ctx context.Context, engine *preset.Engine, session *remote.Session, name string) {
	p, ok := models.FindPreset(name)
	if !ok {
		tool.DefaultLogger.Errorf("Preset %q not found in %s", name, models.GetPresetsDir())
		return
	}
	if !session.Connected() {
		tool.DefaultLogger.Errorf("Cannot apply %q: not connected", name)
		return
	}
	summary, err := engine.Apply(ctx, session, p)
	if err != nil {
		tool.DefaultLogger.Errorf("Applying %q: %v", name, err)
		return
	}
	tool.DefaultLogger.Infof("Applied %q: wrote %v, restarted %v", name, summary.Written, summary.Restarted)
}
