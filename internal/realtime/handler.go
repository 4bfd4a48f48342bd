package realtime

import (
	"log"
	"net/http"

	"vkitchen_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// All origins allowed; tighten in production.
		return true
	},
}

// ServeWS authenticates the upgrade request (browsers cannot set headers on
// WebSocket dials, so the JWT arrives as a query parameter) and hooks the
// connection into the hub.
func ServeWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
			return
		}

		claims, err := utils.ParseJWT(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		userID, _ := claims["user_id"].(string)
		role, _ := claims["role"].(string)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		if role == "" {
			role = "customer"
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("❌ WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(hub, conn, userID, role)
		hub.Register(client)

		conn.WriteJSON(map[string]interface{}{
			"type":    "connected",
			"message": "Realtime updates active",
		})

		go client.WritePump()
		go client.ReadPump()
	}
}
