package order

import (
	"net/http"

	"vkitchen_back_end/internal/handlers/respond"
	"vkitchen_back_end/internal/models"

	"github.com/gin-gonic/gin"
)

// AllOrders lists every order still visible to the admin view.
func (h *Handler) AllOrders(c *gin.Context) {
	all, err := h.Orders.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load orders"})
		return
	}

	visible := make([]models.Order, 0, len(all))
	for _, o := range all {
		if o.DeletedFor.VisibleTo(models.RoleAdmin) {
			visible = append(visible, o)
		}
	}

	c.JSON(http.StatusOK, gin.H{"orders": visible, "count": len(visible)})
}

type updateStatusRequest struct {
	Status     string `json:"status" binding:"required"`
	AdminNotes string `json:"admin_notes"`
}

// UpdateStatus advances an order through fulfillment.
func (h *Handler) UpdateStatus(c *gin.Context) {
	orderID := c.Param("orderId")

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	o, err := h.Coordinator.UpdateOrderStatus(c.Request.Context(), orderID,
		models.OrderStatus(req.Status), req.AdminNotes)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order": o})
}

type processRefundRequest struct {
	Reason string `json:"reason"`
}

// ProcessRefund executes a refund and cancels the order in the same step.
func (h *Handler) ProcessRefund(c *gin.Context) {
	orderID := c.Param("orderId")
	adminID := c.GetString("user_id")

	var req processRefundRequest
	_ = c.ShouldBindJSON(&req)

	o, err := h.Coordinator.ProcessRefund(c.Request.Context(), orderID, adminID, req.Reason)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Refund processed", "order": o})
}

// AdminDelete hides a finished order from the admin view.
func (h *Handler) AdminDelete(c *gin.Context) {
	adminID := c.GetString("user_id")
	orderID := c.Param("orderId")

	if err := h.Coordinator.DeleteOrder(c.Request.Context(), orderID, adminID, models.RoleAdmin); err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order removed from the admin view"})
}
