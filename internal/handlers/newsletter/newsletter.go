package newsletter

import (
	"log"
	"net/http"
	"time"

	"vkitchen_back_end/internal/database"
	"vkitchen_back_end/internal/models"

	"github.com/gin-gonic/gin"
)

type subscribeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A valid email is required"})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection error"})
		return
	}

	err = session.Query(`
		INSERT INTO subscribers (email, active, subscribed_at) VALUES (?, ?, ?)`,
		req.Email, true, time.Now(),
	).WithContext(c.Request.Context()).Exec()
	if err != nil {
		log.Printf("❌ Newsletter subscription failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Subscription failed"})
		return
	}

	log.Printf("📧 Newsletter subscription: %s", req.Email)
	c.JSON(http.StatusCreated, gin.H{"message": "Subscribed"})
}

func Unsubscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A valid email is required"})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection error"})
		return
	}

	err = session.Query(`UPDATE subscribers SET active = ? WHERE email = ?`,
		false, req.Email).WithContext(c.Request.Context()).Exec()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unsubscription failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed"})
}

// ListSubscribers returns the active mailing list. Admin only.
func ListSubscribers(c *gin.Context) {
	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection error"})
		return
	}

	iter := session.Query(`SELECT email, active, subscribed_at FROM subscribers`).
		WithContext(c.Request.Context()).Iter()

	var out []models.Subscriber
	var s models.Subscriber
	for iter.Scan(&s.Email, &s.Active, &s.SubscribedAt) {
		if s.Active {
			out = append(out, s)
		}
	}
	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load subscribers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscribers": out, "count": len(out)})
}
