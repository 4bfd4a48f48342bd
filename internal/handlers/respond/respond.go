package respond

import (
	"net/http"

	"vkitchen_back_end/internal/lifecycle"

	"github.com/gin-gonic/gin"
)

// Error maps a coordinator error onto an HTTP status. Anything that is not a
// classified lifecycle error is a 500 with a generic message.
func Error(c *gin.Context, err error) {
	switch lifecycle.KindOf(err) {
	case lifecycle.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case lifecycle.KindAuthorization:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case lifecycle.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case lifecycle.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case lifecycle.KindExternal:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
