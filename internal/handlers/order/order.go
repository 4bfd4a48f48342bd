package order

import (
	"errors"
	"net/http"

	"vkitchen_back_end/internal/handlers/respond"
	"vkitchen_back_end/internal/handlers/shop"
	"vkitchen_back_end/internal/lifecycle"
	"vkitchen_back_end/internal/models"
	"vkitchen_back_end/internal/orders"

	"github.com/gin-gonic/gin"
)

// Handler serves the customer-facing order endpoints.
type Handler struct {
	Coordinator *lifecycle.Coordinator
	Orders      *orders.Store
}

func NewHandler(coordinator *lifecycle.Coordinator, store *orders.Store) *Handler {
	return &Handler{Coordinator: coordinator, Orders: store}
}

type createOrderRequest struct {
	Items    []lifecycle.NewOrderItem `json:"items" binding:"required"`
	Delivery models.DeliveryInfo      `json:"delivery" binding:"required"`
}

// Create opens a pending order awaiting payment.
func (h *Handler) Create(c *gin.Context) {
	if !shop.IsOpen(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "The shop is currently closed"})
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order data", "details": err.Error()})
		return
	}

	userID := c.GetString("user_id")
	email := c.GetString("email")

	o, err := h.Coordinator.CreateOrder(c.Request.Context(), userID, email, req.Items, req.Delivery)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": o})
}

// MyOrders lists the caller's orders, minus those they soft-deleted.
func (h *Handler) MyOrders(c *gin.Context) {
	userID := c.GetString("user_id")

	all, err := h.Orders.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load orders"})
		return
	}

	visible := make([]models.Order, 0, len(all))
	for _, o := range all {
		if o.DeletedFor.VisibleTo(models.RoleCustomer) {
			visible = append(visible, o)
		}
	}

	c.JSON(http.StatusOK, gin.H{"orders": visible, "count": len(visible)})
}

// Get returns one of the caller's orders.
func (h *Handler) Get(c *gin.Context) {
	userID := c.GetString("user_id")
	orderID := c.Param("orderId")

	o, err := h.Orders.GetByID(c.Request.Context(), orderID)
	if errors.Is(err, orders.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load order"})
		return
	}
	if o.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This order does not belong to you"})
		return
	}
	if !o.DeletedFor.VisibleTo(models.RoleCustomer) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": o})
}

// Cancel cancels the caller's order, refunding if it was paid.
func (h *Handler) Cancel(c *gin.Context) {
	userID := c.GetString("user_id")
	orderID := c.Param("orderId")

	o, err := h.Coordinator.CancelOrder(c.Request.Context(), orderID, userID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled", "order": o})
}

// Delete hides a finished order from the caller's history.
func (h *Handler) Delete(c *gin.Context) {
	userID := c.GetString("user_id")
	orderID := c.Param("orderId")

	if err := h.Coordinator.DeleteOrder(c.Request.Context(), orderID, userID, models.RoleCustomer); err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order removed from your history"})
}

type refundRequest struct {
	Reason string `json:"reason" binding:"required,min=10,max=500"`
}

// RequestRefund records a refund request for review; nothing is refunded yet.
func (h *Handler) RequestRefund(c *gin.Context) {
	userID := c.GetString("user_id")
	orderID := c.Param("orderId")

	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A reason between 10 and 500 characters is required"})
		return
	}

	o, err := h.Coordinator.RequestRefund(c.Request.Context(), orderID, userID, req.Reason)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Refund request received", "order": o})
}
