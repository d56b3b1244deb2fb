package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/devconf/api/models"
	"github.com/moyoez/devconf/notify"
	"github.com/moyoez/devconf/remote"
	"github.com/moyoez/devconf/share"
	"github.com/moyoez/devconf/tool"
	"github.com/moyoez/devconf/types"
)

// UserStatus returns server and device state for the web UI.
// GET /api/self/v1/status
func UserStatus(c *gin.Context) {
	resp := gin.H{
		"running":           true,
		"notify_ws_enabled": notify.NotifyWSEnabled(),
		"connected":         false,
		"devices":           share.ListDeviceStatuses(),
	}
	if rt := models.GetRuntime(); rt != nil && rt.Session != nil {
		endpoint, connected := rt.Session.Endpoint()
		resp["connected"] = connected
		if connected {
			resp["endpoint"] = endpoint
		}
	}
	c.JSON(http.StatusOK, resp)
}

// UserConnect connects to the stored device, or to the one in the body.
// POST /api/self/v1/connect
func UserConnect(c *gin.Context) {
	rt, ok := runtimeOrAbort(c)
	if !ok {
		return
	}
	var body types.ConnectRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, tool.FastReturnErrorKind("bad_request", err.Error()))
			return
		}
	}
	cfg := tool.GetCurrentConfig()
	body.Apply(&cfg)
	endpoint := cfg.Endpoint()
	if !endpoint.CanConnect() {
		respondError(c, remote.ErrInvalidEndpoint)
		return
	}

	ctx, cancel := requestContext(c, rt)
	defer cancel()

	status := types.DeviceStatus{Host: endpoint.Host, Kind: endpoint.Kind}
	if !rt.Session.Probe(ctx, endpoint) {
		status.Message = "no reply to probe"
		share.SetDeviceStatus(status)
		respondError(c, &remote.ConnectionError{Endpoint: endpoint.Addr(), Kind: remote.ErrUnreachable})
		return
	}
	status.Reachable = true

	if err := rt.Session.Connect(ctx, endpoint); err != nil {
		status.Message = err.Error()
		share.SetDeviceStatus(status)
		respondError(c, err)
		return
	}
	status.Connected = true
	if hostname, err := rt.Session.Hostname(ctx); err == nil {
		status.Hostname = hostname
	} else {
		tool.DefaultLogger.Debugf("Hostname query failed: %v", err)
	}
	share.SetDeviceStatus(status)

	if err := tool.PersistEndpoint(endpoint); err != nil {
		tool.DefaultLogger.Warnf("Connected but could not save settings: %v", err)
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(status))
}

// UserDisconnect closes the device session. Safe when already disconnected.
// POST /api/self/v1/disconnect
func UserDisconnect(c *gin.Context) {
	rt, ok := runtimeOrAbort(c)
	if !ok {
		return
	}
	endpoint, connected := rt.Session.Endpoint()
	rt.Session.Disconnect()
	if connected {
		prev, _ := share.GetDeviceStatus(endpoint.Host)
		prev.Host = endpoint.Host
		prev.Kind = endpoint.Kind
		prev.Connected = false
		prev.LastSeen = time.Now()
		share.SetDeviceStatus(prev)
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// UserProbe checks whether a host answers, without connecting.
// GET /api/self/v1/probe?host=<ip>&port=<port>
func UserProbe(c *gin.Context) {
	rt, ok := runtimeOrAbort(c)
	if !ok {
		return
	}
	endpoint := tool.GetCurrentConfig().Endpoint()
	if host := c.Query("host"); host != "" {
		endpoint.Host = host
	}
	if p := c.Query("port"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			c.JSON(http.StatusBadRequest, tool.FastReturnErrorKind("bad_request", "invalid port"))
			return
		}
		endpoint.Port = port
	}
	if endpoint.Host == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnErrorKind("bad_request", "Missing required parameter: host"))
		return
	}

	ctx, cancel := requestContext(c, rt)
	defer cancel()
	reachable := rt.Session.Probe(ctx, endpoint)

	status, _ := share.GetDeviceStatus(endpoint.Host)
	status.Host = endpoint.Host
	status.Reachable = reachable
	if status.Kind == "" {
		status.Kind = endpoint.Kind
	}
	share.SetDeviceStatus(status)
	c.JSON(http.StatusOK, gin.H{"host": endpoint.Host, "reachable": reachable})
}
