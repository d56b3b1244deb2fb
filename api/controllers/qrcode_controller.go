package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/moyoez/devconf/tool"
)

const (
	defaultQRSize = 200
	maxQRSize     = 512
)

// DeviceQRCode returns a PNG QR code for the stored device, as ssh://user@host:port.
// A data parameter overrides the encoded text.
// GET /api/self/v1/device-qr?size=200x200
func DeviceQRCode(c *gin.Context) {
	data := c.Query("data")
	if data == "" {
		endpoint := tool.GetCurrentConfig().Endpoint()
		if endpoint.Host == "" {
			c.JSON(http.StatusBadRequest, tool.FastReturnErrorKind("invalid_endpoint", "no device configured"))
			return
		}
		data = fmt.Sprintf("ssh://%s@%s", endpoint.Username, endpoint.Addr())
	}

	size := parseSize(c.Query("size"))
	if size <= 0 {
		size = defaultQRSize
	}
	if size > maxQRSize {
		size = maxQRSize
	}

	png, err := qrcode.Encode(data, qrcode.Medium, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to encode QR code: "+err.Error()))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// parseSize parses size from "200x200" or "200" and returns the pixel dimension.
func parseSize(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if idx := strings.Index(s, "x"); idx > 0 {
		s = strings.TrimSpace(s[:idx])
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
