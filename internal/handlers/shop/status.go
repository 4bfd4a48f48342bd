package shop

import (
	"context"
	"log"
	"net/http"

	"vkitchen_back_end/internal/database"

	"github.com/gin-gonic/gin"
)

const openKey = "shop:open"

// IsOpen reports whether the shop currently accepts orders. Missing key and
// Redis errors both default to open: a flag outage must not stop the kitchen.
func IsOpen(ctx context.Context) bool {
	val, err := database.Redis.Get(ctx, openKey).Result()
	if err != nil {
		return true
	}
	return val != "false"
}

func GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"open": IsOpen(c.Request.Context())})
}

// SetStatus flips the shop open/closed. Admin only.
func SetStatus(c *gin.Context) {
	var req struct {
		Open *bool `json:"open" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open (boolean) is required"})
		return
	}

	val := "true"
	if !*req.Open {
		val = "false"
	}
	if err := database.Redis.Set(c.Request.Context(), openKey, val, 0).Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update shop status"})
		return
	}

	log.Printf("🏪 Shop marked %s", map[bool]string{true: "open", false: "closed"}[*req.Open])
	c.JSON(http.StatusOK, gin.H{"open": *req.Open})
}
