package admin

import (
	"log"
	"net/http"

	"vkitchen_back_end/internal/database"

	"github.com/gin-gonic/gin"
)

// GetDashboardStats aggregates the admin dashboard numbers. Soft-deleted
// orders still count: hiding an order from a view never hides its revenue.
func GetDashboardStats(c *gin.Context) {
	session, err := database.GetOrdersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection error"})
		return
	}

	var totalOrders int
	var totalRevenue float64
	statusCount := make(map[string]int)
	paymentCount := make(map[string]int)

	iter := session.Query(`SELECT status, payment_status, total_amount FROM orders`).Iter()
	var status, paymentStatus string
	var amount float64
	for iter.Scan(&status, &paymentStatus, &amount) {
		totalOrders++
		statusCount[status]++
		paymentCount[paymentStatus]++
		if paymentStatus == "paid" || paymentStatus == "refunded" {
			totalRevenue += amount
		}
	}
	if err := iter.Close(); err != nil {
		log.Printf("❌ Order stats read failed: %v", err)
	}

	menuSession, err := database.GetMenuSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection error"})
		return
	}

	var totalDishes, unavailableDishes int
	dishIter := menuSession.Query(`SELECT available FROM dishes`).Iter()
	var available bool
	for dishIter.Scan(&available) {
		totalDishes++
		if !available {
			unavailableDishes++
		}
	}
	if err := dishIter.Close(); err != nil {
		log.Printf("❌ Dish stats read failed: %v", err)
	}

	usersSession, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection error"})
		return
	}

	var totalUsers int
	userIter := usersSession.Query(`SELECT user_id FROM users`).Iter()
	var userID string
	for userIter.Scan(&userID) {
		totalUsers++
	}
	if err := userIter.Close(); err != nil {
		log.Printf("❌ User stats read failed: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": gin.H{
			"total":      totalOrders,
			"by_status":  statusCount,
			"by_payment": paymentCount,
			"revenue":    totalRevenue,
		},
		"menu": gin.H{
			"total":       totalDishes,
			"unavailable": unavailableDishes,
		},
		"users": gin.H{
			"total": totalUsers,
		},
	})
}
