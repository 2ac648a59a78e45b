package handler

import (
	"net/http"

	"smartwaste/internal/logger"
	"smartwaste/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsWebsocketHandler registers dashboard clients with the hub so they
// receive arrival and classification events.
func EventsWebsocketHandler(manager *service.Manager, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		hub := manager.GetWebsocketService()
		if hub == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "events disabled"})
			return
		}

		connection, err := Upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		hub.Register(connection)
		defer hub.Unregister(connection)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warning("Dashboard client disconnected with error: %v", err)
				}
				break
			}
		}
	}
}
