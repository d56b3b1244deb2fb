package middlewares

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/devconf/tool"
)

// OnlyAllowLocal rejects requests that do not come from a loopback address.
func OnlyAllowLocal(c *gin.Context) {
	ip := net.ParseIP(c.ClientIP())
	if ip != nil && ip.IsLoopback() {
		c.Next()
		return
	}
	c.AbortWithStatusJSON(http.StatusForbidden, tool.FastReturnError("Forbidden"))
}
