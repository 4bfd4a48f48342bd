package payment

import (
	"encoding/json"
	"log"
	"net/http"

	"vkitchen_back_end/internal/handlers/respond"
	"vkitchen_back_end/internal/handlers/shop"
	"vkitchen_back_end/internal/lifecycle"
	"vkitchen_back_end/internal/models"
	"vkitchen_back_end/internal/payments"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
)

const maxWebhookBody = 65536

// Handler serves the payment endpoints: intent creation on both flows, the
// client confirmation fallback, and the provider webhook.
type Handler struct {
	Coordinator *lifecycle.Coordinator
	Stripe      *payments.StripeProvider
}

func NewHandler(coordinator *lifecycle.Coordinator, stripe *payments.StripeProvider) *Handler {
	return &Handler{Coordinator: coordinator, Stripe: stripe}
}

type createIntentRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// CreateIntent opens a payment for an existing pending order.
func (h *Handler) CreateIntent(c *gin.Context) {
	if !shop.IsOpen(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "The shop is currently closed"})
		return
	}

	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
		return
	}

	userID := c.GetString("user_id")
	o, clientSecret, err := h.Coordinator.CreatePaymentIntent(c.Request.Context(), req.OrderID, userID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"client_secret": clientSecret,
		"order_number":  o.OrderNumber,
		"amount":        o.TotalAmount,
	})
}

type checkoutRequest struct {
	Items    []lifecycle.NewOrderItem `json:"items" binding:"required"`
	Delivery models.DeliveryInfo      `json:"delivery" binding:"required"`
}

// Checkout opens a payment before any order exists. The order materializes
// when the success webhook arrives.
func (h *Handler) Checkout(c *gin.Context) {
	if !shop.IsOpen(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "The shop is currently closed"})
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid checkout data", "details": err.Error()})
		return
	}

	userID := c.GetString("user_id")
	email := c.GetString("email")

	clientSecret, total, err := h.Coordinator.CreatePaymentIntentForUnsavedOrder(
		c.Request.Context(), userID, email, req.Items, req.Delivery)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"client_secret": clientSecret, "amount": total})
}

type confirmRequest struct {
	OrderID         string `json:"order_id" binding:"required"`
	PaymentIntentID string `json:"payment_intent_id"`
}

// Confirm is the client-driven confirmation path, used when the frontend
// learns of the charge before the webhook lands.
func (h *Handler) Confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
		return
	}

	userID := c.GetString("user_id")
	o, err := h.Coordinator.ConfirmPayment(c.Request.Context(), req.OrderID, userID, req.PaymentIntentID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment confirmed", "order": o})
}

// StripeWebhook receives provider deliveries. Signature verification is
// mandatory; a processing failure returns 500 so Stripe redelivers.
func (h *Handler) StripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)

	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read payload"})
		return
	}

	event, err := h.Stripe.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Printf("❌ Webhook signature verification failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	ev := lifecycle.PaymentEvent{
		ID:         event.ID,
		Type:       string(event.Type),
		RawPayload: payload,
	}
	if intent := intentFromEvent(event); intent != nil {
		ev.IntentID = intent.ID
		ev.Amount = intent.Amount
		ev.Metadata = intent.Metadata
	}

	if err := h.Coordinator.HandlePaymentEvent(c.Request.Context(), ev); err != nil {
		log.Printf("❌ Webhook %s processing failed: %v", event.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Event processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func intentFromEvent(event stripe.Event) *stripe.PaymentIntent {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		log.Printf("⚠️ Could not decode payment intent from event %s: %v", event.ID, err)
		return nil
	}
	return &intent
}
