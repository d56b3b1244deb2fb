package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/devconf/api/models"
	"github.com/moyoez/devconf/codec"
	"github.com/moyoez/devconf/preset"
	"github.com/moyoez/devconf/remote"
	"github.com/moyoez/devconf/store"
	"github.com/moyoez/devconf/tool"
)

type errorKind struct {
	target error
	status int
	kind   string
}

// Checked in order. Preset errors wrap store errors, which wrap remote errors.
var errorKinds = []errorKind{
	{preset.ErrMalformedPreset, http.StatusUnprocessableEntity, "malformed_preset"},
	{preset.ErrPartialCommit, http.StatusConflict, "partial_commit"},
	{preset.ErrRestartFailed, http.StatusBadGateway, "restart_failed"},
	{preset.ErrApplyFailed, http.StatusUnprocessableEntity, "apply_failed"},
	{store.ErrUnknownCategory, http.StatusNotFound, "unknown_category"},
	{store.ErrMalformedContent, http.StatusUnprocessableEntity, "malformed_content"},
	{codec.ErrInvalidChange, http.StatusBadRequest, "invalid_change"},
	{store.ErrRemoteUnavailable, http.StatusConflict, "not_connected"},
	{remote.ErrNotConnected, http.StatusConflict, "not_connected"},
	{remote.ErrInvalidEndpoint, http.StatusBadRequest, "invalid_endpoint"},
	{remote.ErrAuthFailed, http.StatusUnauthorized, "auth_failed"},
	{remote.ErrUnreachable, http.StatusBadGateway, "unreachable"},
	{remote.ErrTimeout, http.StatusGatewayTimeout, "timeout"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
	{preset.ErrFetchFailed, http.StatusBadGateway, "fetch_failed"},
	{store.ErrReadFailed, http.StatusBadGateway, "read_failed"},
	{store.ErrWriteFailed, http.StatusBadGateway, "write_failed"},
}

func classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.status, k.kind
		}
	}
	var remoteErr *remote.RemoteError
	if errors.As(err, &remoteErr) {
		return http.StatusBadGateway, "remote_error"
	}
	return http.StatusInternalServerError, "internal"
}

func respondError(c *gin.Context, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		tool.DefaultLogger.Errorf("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
	} else {
		tool.DefaultLogger.Debugf("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, tool.FastReturnErrorKind(kind, err.Error()))
}

// runtimeOrAbort returns the engine runtime, answering 503 when main has not installed one.
func runtimeOrAbort(c *gin.Context) (*models.Runtime, bool) {
	rt := models.GetRuntime()
	if rt == nil || rt.Session == nil {
		c.JSON(http.StatusServiceUnavailable, tool.FastReturnErrorKind("not_ready", "engine not initialized"))
		return nil, false
	}
	return rt, true
}

func requestContext(c *gin.Context, rt *models.Runtime) (context.Context, context.CancelFunc) {
	if rt.RequestTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), rt.RequestTimeout)
	}
	return context.WithCancel(c.Request.Context())
}
