package models

import (
	"time"

	"github.com/gocql/gocql"
)

type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusPlaced         OrderStatus = "placed"
	StatusPreparing      OrderStatus = "preparing"
	StatusReady          OrderStatus = "ready"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusCompleted      OrderStatus = "completed"
	StatusCancelled      OrderStatus = "cancelled"
)

// fulfillmentRank orders the forward fulfillment sequence. cancelled is not
// part of the sequence: it is only reachable through CancelOrder.
var fulfillmentRank = map[OrderStatus]int{
	StatusPending:        0,
	StatusPlaced:         1,
	StatusPreparing:      2,
	StatusReady:          3,
	StatusOutForDelivery: 4,
	StatusCompleted:      5,
}

func (s OrderStatus) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := fulfillmentRank[s]
	return ok
}

// Terminal reports whether no further status transition is permitted.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanAdvanceTo reports whether next is strictly forward in the fulfillment
// sequence from s. cancelled never qualifies.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	from, ok := fulfillmentRank[s]
	if !ok {
		return false
	}
	to, ok := fulfillmentRank[next]
	if !ok {
		return false
	}
	return to > from
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// DeletedFor holds the viewer roles an order has been soft-deleted for.
// The record itself is never removed.
type DeletedFor []string

func (d DeletedFor) VisibleTo(role string) bool {
	for _, r := range d {
		if r == role {
			return false
		}
	}
	return true
}

func (d DeletedFor) With(role string) DeletedFor {
	if !d.VisibleTo(role) {
		return d
	}
	return append(append(DeletedFor{}, d...), role)
}

const (
	DeliveryTypeDelivery = "delivery"
	DeliveryTypePickup   = "pickup"
)

type DeliveryInfo struct {
	Type         string `json:"type"`
	Address      string `json:"address,omitempty"`
	Phone        string `json:"phone"`
	Instructions string `json:"instructions,omitempty"`
}

// OrderItem snapshots the dish price at order time. Later menu price changes
// never affect a placed order.
type OrderItem struct {
	DishID   string  `json:"dish_id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

func (i OrderItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

type Order struct {
	ID                gocql.UUID           `json:"id"`
	OrderNumber       string               `json:"order_number"`
	UserID            string               `json:"user_id"`
	UserEmail         string               `json:"user_email"`
	Items             []OrderItem          `json:"items"`
	TotalAmount       float64              `json:"total_amount"`
	Status            OrderStatus          `json:"status"`
	PaymentStatus     PaymentStatus        `json:"payment_status"`
	StatusTimestamps  map[string]time.Time `json:"status_timestamps"`
	PaymentIntentID   string               `json:"payment_intent_id,omitempty"`
	RefundID          string               `json:"refund_id,omitempty"`
	RefundRequested   bool                 `json:"refund_requested"`
	RefundReason      string               `json:"refund_reason,omitempty"`
	RefundRequestedAt *time.Time           `json:"refund_requested_at,omitempty"`
	Delivery          DeliveryInfo         `json:"delivery"`
	AdminNotes        string               `json:"admin_notes,omitempty"`
	EstimatedReadyAt  *time.Time           `json:"estimated_delivery_at,omitempty"`
	DeliveredAt       *time.Time           `json:"delivered_at,omitempty"`
	DeletedFor        DeletedFor           `json:"-"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// StampStatus records the instant a status was first entered. A status already
// stamped keeps its original timestamp.
func (o *Order) StampStatus(s OrderStatus, at time.Time) bool {
	if o.StatusTimestamps == nil {
		o.StatusTimestamps = make(map[string]time.Time)
	}
	if _, done := o.StatusTimestamps[string(s)]; done {
		return false
	}
	o.StatusTimestamps[string(s)] = at
	return true
}

func (o *Order) Terminal() bool {
	return o.Status.Terminal()
}

// ComputeTotal sums the line-item subtotals.
func (o *Order) ComputeTotal() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.Subtotal()
	}
	return total
}
