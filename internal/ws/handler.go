package ws

import (
	"net/http"
	"slices"

	"photoquest/internal/logger"
	"photoquest/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// HandleAdminFeed upgrades admins to the live top-up feed. Browsers cannot
// set headers on WebSocket requests, so the token comes from the query.
func HandleAdminFeed(hub *Hub, auth service.Authenticator, allowedOrigins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
		},
	}

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required", "kind": "unauthorized"})
			return
		}

		p, err := auth.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "kind": "unauthorized"})
			return
		}
		if !p.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required", "kind": "forbidden"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade failed", "error", err)
			return
		}

		go NewClient(p.UserID, conn, hub).Run()
	}
}
