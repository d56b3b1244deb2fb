package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/devconf/api/models"
	"github.com/moyoez/devconf/tool"
	"github.com/moyoez/devconf/types"
)

// UserSettingsGet returns the stored settings without the password.
// GET /api/self/v1/settings
func UserSettingsGet(c *gin.Context) {
	cfg := tool.GetCurrentConfig()
	connected := false
	if rt := models.GetRuntime(); rt != nil && rt.Session != nil {
		connected = rt.Session.Connected()
	}
	c.JSON(http.StatusOK, types.ConfigResponse{
		IPAddress:   cfg.IPAddress,
		Port:        cfg.Port,
		Username:    cfg.Username,
		HasPassword: cfg.Password != "",
		DeviceType:  cfg.DeviceType,
		PresetsDir:  cfg.PresetsDir,
		Repository:  cfg.PresetRepository,
		Connected:   connected,
	})
}

// UserSettingsPatch accepts a partial settings record and persists it to config.yaml.
// PATCH /api/self/v1/settings
func UserSettingsPatch(c *gin.Context) {
	var body types.SettingsPatchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnErrorKind("bad_request", err.Error()))
		return
	}

	cfg := tool.GetCurrentConfig()
	body.ConnectRequest.Apply(&cfg)
	if body.PresetsDir != nil {
		cfg.PresetsDir = *body.PresetsDir
	}
	if body.PresetRepository != nil {
		cfg.PresetRepository = *body.PresetRepository
	}
	if body.CommandTimeout != nil {
		if *body.CommandTimeout <= 0 {
			c.JSON(http.StatusBadRequest, tool.FastReturnErrorKind("bad_request", "commandTimeout must be positive"))
			return
		}
		cfg.CommandTimeout = *body.CommandTimeout
	}

	if err := tool.PersistAppConfig(cfg); err != nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnErrorKind("internal", err.Error()))
		return
	}
	if body.PresetsDir != nil {
		models.SetPresetsDir(cfg.PresetsDir)
		if _, err := models.ReloadPresets(); err != nil {
			tool.DefaultLogger.Warnf("Reloading presets from %s: %v", cfg.PresetsDir, err)
		}
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}
