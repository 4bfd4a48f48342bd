package realtime

import "time"

// Event types pushed over the socket.
const (
	EventPaymentSuccess      = "payment-success"
	EventPaymentFailed       = "payment-failed"
	EventOrderPlaced         = "order-placed"
	EventOrderStatusUpdated  = "order-status-updated"
	EventNotificationCreated = "notification-created"
	EventNotificationUpdated = "notification-updated"
	EventUnreadCountUpdated  = "unread-count-updated"
	EventRefundProcessed     = "refund-processed"
	EventRefundRequested     = "refund-requested"
)

type Event struct {
	Type          string                 `json:"type"`
	OrderID       string                 `json:"order_id,omitempty"`
	OrderNumber   string                 `json:"order_number,omitempty"`
	Status        string                 `json:"status,omitempty"`
	PaymentStatus string                 `json:"payment_status,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	Data          map[string]interface{} `json:"data,omitempty"`
}
