package notifyhub

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/moyoez/devconf/tool"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // OnlyAllowLocal middleware already restricts to localhost
	},
}

// HandleNotifyWS upgrades the request to WebSocket and registers the connection with the hub.
func HandleNotifyWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			tool.DefaultLogger.Debugf("[NotifyHub] upgrade failed: %v", err)
			return
		}
		defer func() {
			_ = conn.Close()
		}()

		hub.Register(conn)
		defer hub.Unregister(conn)

		// Read loop to detect client close
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}
