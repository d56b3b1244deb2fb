package controllers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/devconf/discover"
	"github.com/moyoez/devconf/share"
	"github.com/moyoez/devconf/tool"
)

// ScanTimeout bounds one sweep of the local networks.
var ScanTimeout = 30 * time.Second

var scanMu sync.Mutex

// UserScanCurrent returns the devices seen by probes, connects and sweeps.
// GET /api/self/v1/scan-current
func UserScanCurrent(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(share.ListDeviceStatuses()))
}

// UserScanNow sweeps the local networks for hosts with an open ssh port.
// GET /api/self/v1/scan-now
func UserScanNow(c *gin.Context) {
	if !scanMu.TryLock() {
		c.JSON(http.StatusConflict, tool.FastReturnErrorKind("scan_running", "a scan is already running"))
		return
	}
	defer scanMu.Unlock()

	cfg := tool.GetCurrentConfig()
	ctx, cancel := context.WithTimeout(c.Request.Context(), ScanTimeout)
	defer cancel()
	scanner := discover.Scanner{Port: cfg.Port, Kind: cfg.Endpoint().Kind}
	if _, err := scanner.Scan(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnErrorKind("internal", "Scan failed: "+err.Error()))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(share.ListDeviceStatuses()))
}
