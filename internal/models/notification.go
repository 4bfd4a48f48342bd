package models

import (
	"time"

	"github.com/gocql/gocql"
)

type NotificationType string

const (
	NotifOrderPlaced      NotificationType = "order_placed"
	NotifPaymentSuccess   NotificationType = "payment_success"
	NotifPaymentFailed    NotificationType = "payment_failed"
	NotifKitchenStarted   NotificationType = "kitchen_started"
	NotifReadyForPickup   NotificationType = "ready_for_pickup"
	NotifReadyForDelivery NotificationType = "ready_for_delivery"
	NotifOutForDelivery   NotificationType = "out_for_delivery"
	NotifOrderDelivered   NotificationType = "order_delivered"
	NotifOrderCancelled   NotificationType = "order_cancelled"
	NotifRefundRequested  NotificationType = "refund_requested"
	NotifRefundProcessed  NotificationType = "refund_processed"
	NotifRefundIssued     NotificationType = "refund_issued"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// NotificationTTL is how long a feed entry lives before Scylla expires it.
const NotificationTTL = 30 * 24 * time.Hour

type Notification struct {
	ID        gocql.UUID        `json:"id"`
	UserID    string            `json:"user_id"`
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Data      map[string]string `json:"data,omitempty"`
	Priority  string            `json:"priority"`
	Read      bool              `json:"read"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}
