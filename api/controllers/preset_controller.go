package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/devconf/api/models"
	"github.com/moyoez/devconf/preset"
	"github.com/moyoez/devconf/tool"
	"github.com/moyoez/devconf/types"
)

// UserPresetsList returns the loaded presets.
// GET /api/self/v1/presets
func UserPresetsList(c *gin.Context) {
	list := models.ListPresets()
	if list == nil {
		list = []*types.Preset{}
	}
	c.JSON(http.StatusOK, gin.H{"presets": list, "dir": models.GetPresetsDir()})
}

// UserPresetsReload reads the presets directory again.
// POST /api/self/v1/presets/reload
func UserPresetsReload(c *gin.Context) {
	list, err := models.ReloadPresets()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presets": list})
}

// UserPresetsSync downloads presets from the configured repository, then reloads.
// POST /api/self/v1/presets/sync
func UserPresetsSync(c *gin.Context) {
	rt, ok := runtimeOrAbort(c)
	if !ok {
		return
	}
	url := tool.GetCurrentConfig().PresetRepository
	if url == "" || rt.Repository == nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnErrorKind("no_repository", "no preset repository configured"))
		return
	}
	n, err := rt.Repository.Sync(c.Request.Context(), url, models.GetPresetsDir())
	if err != nil {
		c.JSON(http.StatusBadGateway, tool.FastReturnErrorKind("sync_failed", err.Error()))
		return
	}
	list, err := models.ReloadPresets()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": n, "presets": list})
}

// UserPresetApply applies a preset by name. With async=true it answers 202 with a job id.
// POST /api/self/v1/presets/:name/apply
func UserPresetApply(c *gin.Context) {
	rt, ok := runtimeOrAbort(c)
	if !ok {
		return
	}
	p, found := models.FindPreset(c.Param("name"))
	if !found {
		c.JSON(http.StatusNotFound, tool.FastReturnErrorKind("unknown_preset", "preset not found: "+c.Param("name")))
		return
	}

	if c.Query("async") == "true" {
		id := models.StartApplyJob(p.Name)
		// The job outlives the request.
		base := context.WithoutCancel(c.Request.Context())
		ctx, cancel := context.WithCancel(base)
		if rt.RequestTimeout > 0 {
			cancel()
			ctx, cancel = context.WithTimeout(base, rt.RequestTimeout)
		}
		go func() {
			defer cancel()
			models.FinishApplyJob(id, <-rt.Engine.ApplyAsync(ctx, rt.Session, p))
		}()
		c.JSON(http.StatusAccepted, gin.H{"job": id})
		return
	}

	ctx, cancel := requestContext(c, rt)
	defer cancel()
	summary, err := rt.Engine.Apply(ctx, rt.Session, p)
	if err != nil {
		status, kind := classify(err)
		data := map[string]any{"summary": summary}
		var partial *preset.PartialCommitError
		if errors.As(err, &partial) {
			data["succeeded"] = partial.Succeeded
			data["failed"] = partial.Failed
		}
		c.JSON(status, tool.FastReturnErrorWithData(kind, err.Error(), data))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(summary))
}

// UserApplyJob reports a background preset application.
// GET /api/self/v1/presets/jobs/:id
func UserApplyJob(c *gin.Context) {
	job, ok := models.GetApplyJob(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, tool.FastReturnErrorKind("unknown_job", "job not found"))
		return
	}
	c.JSON(http.StatusOK, job)
}
