package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"vkitchen_back_end/internal/models"
	"vkitchen_back_end/internal/orders"
	"vkitchen_back_end/internal/payments"
	"vkitchen_back_end/internal/realtime"

	"github.com/gocql/gocql"
)

type OrderStore interface {
	Insert(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*models.Order, error)
	Save(ctx context.Context, o *models.Order) error
}

type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

type EventStore interface {
	Claim(ctx context.Context, ev *models.WebhookEvent) (*models.WebhookEvent, error)
	Finalize(ctx context.Context, eventID string, outcome models.WebhookOutcome, orderID, errText string) error
}

type Catalog interface {
	GetDish(ctx context.Context, id string) (*models.Dish, error)
}

type PaymentProvider interface {
	CreateIntent(amount int64, currency string, metadata map[string]string) (*payments.Intent, error)
	CreateRefund(intentID, reason string, metadata map[string]string) (*payments.Refund, error)
}

type Publisher interface {
	RouteToUser(userID string, ev realtime.Event)
	RouteToRole(role string, ev realtime.Event)
	RouteToOrder(orderID string, ev realtime.Event)
}

type Mailer interface {
	SendOrderPlacedAlert(o *models.Order) error
	SendCancellationAlert(o *models.Order) error
	SendStatusUpdate(o *models.Order, status models.OrderStatus) error
	SendOrderConfirmation(o *models.Order) error
}

type NumberGenerator interface {
	Next(ctx context.Context) (string, error)
}

type PayloadArchiver interface {
	ArchivePayload(ctx context.Context, eventID string, payload []byte) error
}

type OrderIndexer interface {
	IndexOrder(ctx context.Context, o *models.Order) error
}

// Coordinator drives every order state transition. The order record is the
// single source of truth: one authoritative store write per operation, then
// best-effort fan-out through the dispatcher. Concurrent confirmations for
// the same order are last-writer-wins; both confirmation paths converge on
// the same placed/paid target and duplicate webhook deliveries are cut off
// by the event store.
type Coordinator struct {
	Orders        OrderStore
	Notifications NotificationStore
	Events        EventStore
	Menu          Catalog
	Payments      PaymentProvider
	Hub           Publisher
	Mail          Mailer
	OrderNumbers  NumberGenerator // counting scheme, order-first path
	EventNumbers  NumberGenerator // time scheme, payment-first path
	Archive       PayloadArchiver // optional
	Index         OrderIndexer    // optional
	Effects       *Dispatcher

	now func() time.Time
}

func New(c *Coordinator) *Coordinator {
	if c.Effects == nil {
		c.Effects = NewDispatcher()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

const readyEstimate = 30 * time.Minute

type NewOrderItem struct {
	DishID   string `json:"dish_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

// CreateOrder persists a pending, unpaid order. Prices come from the menu at
// this moment, never from the client. No fan-out: a pending order is
// invisible to the kitchen until payment confirms.
func (c *Coordinator) CreateOrder(ctx context.Context, userID, email string, items []NewOrderItem, delivery models.DeliveryInfo) (*models.Order, error) {
	lineItems, total, err := c.resolveItems(ctx, items)
	if err != nil {
		return nil, err
	}
	if err := validateDelivery(delivery); err != nil {
		return nil, err
	}

	number, err := c.OrderNumbers.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("order number generation failed: %w", err)
	}

	now := c.now()
	o := &models.Order{
		ID:            gocql.TimeUUID(),
		OrderNumber:   number,
		UserID:        userID,
		UserEmail:     email,
		Items:         lineItems,
		TotalAmount:   total,
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentPending,
		Delivery:      delivery,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	o.StampStatus(models.StatusPending, now)

	if err := c.Orders.Insert(ctx, o); err != nil {
		return nil, err
	}

	log.Printf("🧾 Order %s created (pending, %.2f) for user %s", o.OrderNumber, o.TotalAmount, userID)
	return o, nil
}

// getOrder separates a missing row from a store failure: the former is the
// caller's 404, the latter must surface as an internal error.
func (c *Coordinator) getOrder(ctx context.Context, orderID string) (*models.Order, error) {
	o, err := c.Orders.GetByID(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		return nil, NotFoundf("order %s not found", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("order %s lookup failed: %w", orderID, err)
	}
	return o, nil
}

// UpdateOrderStatus advances fulfillment strictly forward. Admins cannot
// cancel through this path; cancellation belongs to the customer alone.
func (c *Coordinator) UpdateOrderStatus(ctx context.Context, orderID string, next models.OrderStatus, adminNotes string) (*models.Order, error) {
	if next == models.StatusCancelled {
		return nil, Authorizationf("admins cannot cancel orders; only the customer may cancel")
	}
	if !next.Valid() || next == models.StatusPending {
		return nil, Validationf("invalid target status %q", next)
	}

	o, err := c.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Terminal() {
		return nil, Conflictf("order %s is already %s and cannot change", o.OrderNumber, o.Status)
	}
	if !o.Status.CanAdvanceTo(next) {
		return nil, Validationf("cannot move order %s from %s to %s", o.OrderNumber, o.Status, next)
	}
	if next == models.StatusOutForDelivery && o.Delivery.Type != models.DeliveryTypeDelivery {
		return nil, Validationf("order %s is a pickup order and cannot go out for delivery", o.OrderNumber)
	}

	now := c.now()
	o.Status = next
	o.StampStatus(next, now)
	if adminNotes != "" {
		o.AdminNotes = adminNotes
	}
	switch next {
	case models.StatusReady:
		eta := now.Add(readyEstimate)
		o.EstimatedReadyAt = &eta
	case models.StatusCompleted:
		delivered := now
		o.DeliveredAt = &delivered
	}

	if err := c.Orders.Save(ctx, o); err != nil {
		return nil, err
	}

	c.Effects.Dispatch(c.statusFanout(o, next))
	log.Printf("📋 Order %s moved to %s", o.OrderNumber, next)
	return o, nil
}

func (c *Coordinator) statusFanout(o *models.Order, status models.OrderStatus) []SideEffect {
	var effects []SideEffect

	switch status {
	case models.StatusPreparing:
		effects = append(effects, c.effectNotify(o, models.NotifKitchenStarted,
			"Your order is being prepared",
			fmt.Sprintf("The kitchen has started on order %s.", o.OrderNumber),
			models.PriorityNormal, nil))
	case models.StatusReady:
		if o.Delivery.Type == models.DeliveryTypePickup {
			effects = append(effects, c.effectNotify(o, models.NotifReadyForPickup,
				"Your order is ready for pickup",
				fmt.Sprintf("Order %s is ready. Show your pickup code at the counter.", o.OrderNumber),
				models.PriorityHigh, map[string]string{"pickup": "true"}))
		} else {
			eta := ""
			if o.EstimatedReadyAt != nil {
				eta = o.EstimatedReadyAt.Format(time.RFC3339)
			}
			effects = append(effects, c.effectNotify(o, models.NotifReadyForDelivery,
				"Your order is ready",
				fmt.Sprintf("Order %s is packed and waiting for a courier.", o.OrderNumber),
				models.PriorityHigh, map[string]string{"estimated_delivery": eta}))
		}
	case models.StatusOutForDelivery:
		effects = append(effects, c.effectNotify(o, models.NotifOutForDelivery,
			"Your order is on its way",
			fmt.Sprintf("Order %s has left the kitchen.", o.OrderNumber),
			models.PriorityHigh, nil))
	case models.StatusCompleted:
		effects = append(effects, c.effectNotify(o, models.NotifOrderDelivered,
			"Order delivered",
			fmt.Sprintf("Order %s has been delivered. Enjoy!", o.OrderNumber),
			models.PriorityNormal, nil))
	}

	effects = append(effects, c.effectPush(o, c.orderEvent(o, realtime.EventOrderStatusUpdated, nil), true))

	if status == models.StatusReady || status == models.StatusCompleted {
		order := *o
		effects = append(effects, c.effectMail("status-update", func() error {
			return c.Mail.SendStatusUpdate(&order, status)
		}))
	}
	if status.Terminal() {
		effects = append(effects, c.effectIndex(o))
	}

	return effects
}

// CancelOrder is customer-only. A paid order gets a refund attempt; a refund
// failure does not block the cancellation, payment stays paid for manual
// reconciliation.
func (c *Coordinator) CancelOrder(ctx context.Context, orderID, userID string) (*models.Order, error) {
	o, err := c.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, Authorizationf("this order does not belong to you")
	}
	if o.Terminal() {
		return nil, Conflictf("order %s is already %s", o.OrderNumber, o.Status)
	}

	now := c.now()
	o.Status = models.StatusCancelled
	o.StampStatus(models.StatusCancelled, now)

	refunded := false
	if o.PaymentStatus == models.PaymentPaid {
		if isRealIntent(o.PaymentIntentID) {
			r, err := c.Payments.CreateRefund(o.PaymentIntentID, "requested_by_customer",
				map[string]string{"order_id": o.ID.String()})
			if err != nil {
				log.Printf("⚠️ Refund failed for order %s (%s): %v — payment left as paid for manual review",
					o.OrderNumber, o.PaymentIntentID, err)
			} else {
				o.PaymentStatus = models.PaymentRefunded
				o.RefundID = r.ID
				refunded = true
			}
		} else {
			// Manually simulated payment: nothing to reverse at the provider.
			o.PaymentStatus = models.PaymentRefunded
			refunded = true
		}
	}

	if err := c.Orders.Save(ctx, o); err != nil {
		return nil, err
	}

	effects := []SideEffect{
		c.effectNotify(o, models.NotifOrderCancelled,
			"Order cancelled",
			fmt.Sprintf("Order %s has been cancelled.", o.OrderNumber),
			models.PriorityNormal, nil),
	}
	if refunded {
		effects = append(effects, c.effectNotify(o, models.NotifRefundIssued,
			"Refund issued",
			fmt.Sprintf("Your payment of %.2f for order %s has been refunded.", o.TotalAmount, o.OrderNumber),
			models.PriorityHigh, map[string]string{"refund_id": o.RefundID}))
	}
	effects = append(effects,
		c.effectPush(o, c.orderEvent(o, realtime.EventOrderStatusUpdated, nil), true),
		c.effectMail("cancellation-alert", func() error {
			order := *o
			return c.Mail.SendCancellationAlert(&order)
		}),
		c.effectIndex(o),
	)
	c.Effects.Dispatch(effects)

	log.Printf("❌ Order %s cancelled by customer (refunded=%v)", o.OrderNumber, refunded)
	return o, nil
}

// DeleteOrder hides a terminal order from one viewer. The record survives and
// stays visible to the other viewer and to all statistics.
func (c *Coordinator) DeleteOrder(ctx context.Context, orderID, userID, role string) error {
	o, err := c.getOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if role == models.RoleCustomer && o.UserID != userID {
		return Authorizationf("this order does not belong to you")
	}
	if !o.Terminal() {
		return Conflictf("only completed or cancelled orders can be removed")
	}

	o.DeletedFor = o.DeletedFor.With(role)
	return c.Orders.Save(ctx, o)
}

// RequestRefund records the customer's request; it never executes a refund.
func (c *Coordinator) RequestRefund(ctx context.Context, orderID, userID, reason string) (*models.Order, error) {
	o, err := c.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, Authorizationf("this order does not belong to you")
	}
	if o.PaymentStatus == models.PaymentRefunded {
		return nil, Conflictf("order %s has already been refunded", o.OrderNumber)
	}
	if o.PaymentStatus != models.PaymentPaid {
		return nil, Conflictf("order %s is not paid (payment status: %s)", o.OrderNumber, o.PaymentStatus)
	}
	if o.RefundRequested {
		return nil, Conflictf("a refund has already been requested for order %s", o.OrderNumber)
	}

	now := c.now()
	o.RefundRequested = true
	o.RefundReason = reason
	o.RefundRequestedAt = &now

	if err := c.Orders.Save(ctx, o); err != nil {
		return nil, err
	}

	c.Effects.Dispatch([]SideEffect{
		c.effectNotify(o, models.NotifRefundRequested,
			"Refund request received",
			fmt.Sprintf("We received your refund request for order %s. Our team will review it shortly.", o.OrderNumber),
			models.PriorityNormal, map[string]string{"reason": reason}),
		{Name: "push:" + realtime.EventRefundRequested, Run: func() error {
			c.Hub.RouteToRole(models.RoleAdmin, c.orderEvent(o, realtime.EventRefundRequested,
				map[string]interface{}{"reason": reason, "user_id": o.UserID}))
			return nil
		}},
	})

	log.Printf("💰 Refund requested for order %s: %s", o.OrderNumber, reason)
	return o, nil
}

// ProcessRefund is the admin-side refund. Refunded and cancelled are set
// together, never independently.
func (c *Coordinator) ProcessRefund(ctx context.Context, orderID, adminID, reason string) (*models.Order, error) {
	o, err := c.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == models.PaymentRefunded {
		return nil, Conflictf("order %s has already been refunded", o.OrderNumber)
	}
	if o.PaymentStatus != models.PaymentPaid {
		return nil, Conflictf("order %s is not paid (payment status: %s)", o.OrderNumber, o.PaymentStatus)
	}

	if isRealIntent(o.PaymentIntentID) {
		r, err := c.Payments.CreateRefund(o.PaymentIntentID, "requested_by_customer",
			map[string]string{"order_id": o.ID.String(), "admin_id": adminID})
		if err != nil {
			return nil, Externalf(err, "refund could not be processed for order %s", o.OrderNumber)
		}
		o.RefundID = r.ID
	}

	now := c.now()
	o.PaymentStatus = models.PaymentRefunded
	o.Status = models.StatusCancelled
	o.StampStatus(models.StatusCancelled, now)
	if reason != "" {
		o.RefundReason = reason
	}

	if err := c.Orders.Save(ctx, o); err != nil {
		return nil, err
	}

	c.Effects.Dispatch([]SideEffect{
		c.effectNotify(o, models.NotifRefundProcessed,
			"Refund approved",
			fmt.Sprintf("Your refund request for order %s has been approved.", o.OrderNumber),
			models.PriorityHigh, map[string]string{"admin_id": adminID}),
		c.effectNotify(o, models.NotifRefundIssued,
			"Refund issued",
			fmt.Sprintf("Your payment of %.2f for order %s has been refunded.", o.TotalAmount, o.OrderNumber),
			models.PriorityHigh, map[string]string{"refund_id": o.RefundID}),
		c.effectPush(o, c.orderEvent(o, realtime.EventRefundProcessed,
			map[string]interface{}{"refund_id": o.RefundID}), false),
		c.effectIndex(o),
	})

	log.Printf("💰 Refund processed for order %s by admin %s", o.OrderNumber, adminID)
	return o, nil
}

// --- shared helpers ---

func (c *Coordinator) resolveItems(ctx context.Context, items []NewOrderItem) ([]models.OrderItem, float64, error) {
	if len(items) == 0 {
		return nil, 0, Validationf("order must contain at least one item")
	}

	var lineItems []models.OrderItem
	var total float64
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, 0, Validationf("item quantity must be at least 1")
		}

		dish, err := c.Menu.GetDish(ctx, item.DishID)
		if err != nil {
			return nil, 0, Validationf("dish %s is no longer on the menu", item.DishID)
		}
		if !dish.Available {
			return nil, 0, Validationf("dish %q is currently unavailable", dish.Name)
		}

		line := models.OrderItem{
			DishID:   dish.ID.String(),
			Name:     dish.Name,
			Price:    dish.Price,
			Quantity: item.Quantity,
		}
		lineItems = append(lineItems, line)
		total += line.Subtotal()
	}
	return lineItems, total, nil
}

func validateDelivery(d models.DeliveryInfo) error {
	switch d.Type {
	case models.DeliveryTypeDelivery:
		if d.Address == "" {
			return Validationf("delivery orders need an address")
		}
	case models.DeliveryTypePickup:
	default:
		return Validationf("delivery type must be %q or %q", models.DeliveryTypeDelivery, models.DeliveryTypePickup)
	}
	if d.Phone == "" {
		return Validationf("a contact phone number is required")
	}
	return nil
}

// isRealIntent distinguishes a provider-issued payment intent from the
// manually simulated ones used before the payment integration existed.
func isRealIntent(id string) bool {
	return strings.HasPrefix(id, "pi_")
}
