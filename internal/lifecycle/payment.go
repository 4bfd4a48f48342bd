package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"

	"vkitchen_back_end/internal/models"
	"vkitchen_back_end/internal/orders"
	"vkitchen_back_end/internal/realtime"

	"github.com/gocql/gocql"
)

// CreatePaymentIntent opens a payment for an existing pending order
// (order-first flow). The amount always comes from the stored order, never
// from the client.
func (c *Coordinator) CreatePaymentIntent(ctx context.Context, orderID, userID string) (*models.Order, string, error) {
	o, err := c.getOrder(ctx, orderID)
	if err != nil {
		return nil, "", err
	}
	if o.UserID != userID {
		return nil, "", Authorizationf("this order does not belong to you")
	}
	if o.Status != models.StatusPending {
		return nil, "", Conflictf("order %s is %s; only pending orders can open a payment", o.OrderNumber, o.Status)
	}

	intent, err := c.Payments.CreateIntent(toCents(o.TotalAmount), "usd", map[string]string{
		"order_id":     o.ID.String(),
		"order_number": o.OrderNumber,
		"user_id":      o.UserID,
		"email":        o.UserEmail,
	})
	if err != nil {
		return nil, "", Externalf(err, "payment intent creation failed for order %s", o.OrderNumber)
	}

	o.PaymentIntentID = intent.ID
	if err := c.Orders.Save(ctx, o); err != nil {
		return nil, "", err
	}

	log.Printf("💳 Payment intent %s created for order %s (%.2f)", intent.ID, o.OrderNumber, o.TotalAmount)
	return o, intent.ClientSecret, nil
}

// orderPayload is the cart snapshot carried inside payment intent metadata on
// the payment-first flow. The order it describes only exists once the
// provider confirms the charge.
type orderPayload struct {
	UserID   string              `json:"user_id"`
	Email    string              `json:"email"`
	Items    []models.OrderItem  `json:"items"`
	Delivery models.DeliveryInfo `json:"delivery"`
}

// CreatePaymentIntentForUnsavedOrder opens a payment without persisting
// anything (payment-first flow). The cart rides along in the intent metadata
// and the order materializes when the success webhook lands.
func (c *Coordinator) CreatePaymentIntentForUnsavedOrder(ctx context.Context, userID, email string, items []NewOrderItem, delivery models.DeliveryInfo) (string, float64, error) {
	lineItems, total, err := c.resolveItems(ctx, items)
	if err != nil {
		return "", 0, err
	}
	if err := validateDelivery(delivery); err != nil {
		return "", 0, err
	}

	payload, err := json.Marshal(orderPayload{
		UserID:   userID,
		Email:    email,
		Items:    lineItems,
		Delivery: delivery,
	})
	if err != nil {
		return "", 0, fmt.Errorf("order payload marshal failed: %w", err)
	}

	intent, err := c.Payments.CreateIntent(toCents(total), "usd", map[string]string{
		"user_id":       userID,
		"email":         email,
		"order_payload": string(payload),
	})
	if err != nil {
		return "", 0, Externalf(err, "payment intent creation failed")
	}

	log.Printf("💳 Payment-first intent %s created for user %s (%.2f)", intent.ID, userID, total)
	return intent.ClientSecret, total, nil
}

// ConfirmPayment is the client-driven confirmation path. The webhook path
// converges on the same transition; whichever arrives second finds the order
// already paid and reports a conflict (client) or skips (webhook).
func (c *Coordinator) ConfirmPayment(ctx context.Context, orderID, userID, intentID string) (*models.Order, error) {
	o, err := c.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != "" && o.UserID != userID {
		return nil, Authorizationf("this order does not belong to you")
	}
	if o.Terminal() {
		return nil, Conflictf("order %s is already %s", o.OrderNumber, o.Status)
	}
	if o.PaymentStatus == models.PaymentPaid {
		return nil, Conflictf("order %s is already paid", o.OrderNumber)
	}

	if intentID != "" && o.PaymentIntentID == "" {
		o.PaymentIntentID = intentID
	}
	if err := c.markPlacedPaid(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// markPlacedPaid is the single place an order becomes placed/paid. Both
// confirmation paths and the webhook all funnel through here.
func (c *Coordinator) markPlacedPaid(ctx context.Context, o *models.Order) error {
	now := c.now()
	o.Status = models.StatusPlaced
	o.PaymentStatus = models.PaymentPaid
	o.StampStatus(models.StatusPlaced, now)

	if err := c.Orders.Save(ctx, o); err != nil {
		return err
	}

	c.Effects.Dispatch(c.fanoutPlaced(o))
	log.Printf("✅ Order %s confirmed: placed and paid", o.OrderNumber)
	return nil
}

func (c *Coordinator) fanoutPlaced(o *models.Order) []SideEffect {
	order := *o
	return []SideEffect{
		c.effectNotify(o, models.NotifOrderPlaced,
			"Order confirmed",
			fmt.Sprintf("Order %s has been placed. The kitchen will start soon.", o.OrderNumber),
			models.PriorityHigh, nil),
		c.effectNotify(o, models.NotifPaymentSuccess,
			"Payment received",
			fmt.Sprintf("Your payment of %.2f for order %s went through.", o.TotalAmount, o.OrderNumber),
			models.PriorityNormal, nil),
		c.effectPush(o, c.orderEvent(o, realtime.EventOrderPlaced, nil), true),
		c.effectPush(o, c.orderEvent(o, realtime.EventPaymentSuccess, nil), false),
		c.effectMail("order-placed-alert", func() error {
			return c.Mail.SendOrderPlacedAlert(&order)
		}),
		c.effectMail("order-confirmation", func() error {
			return c.Mail.SendOrderConfirmation(&order)
		}),
	}
}

// PaymentEvent is a provider webhook delivery reduced to what the
// coordinator needs. RawPayload is the untouched request body, kept for the
// audit archive.
type PaymentEvent struct {
	ID         string
	Type       string
	IntentID   string
	Amount     int64
	Metadata   map[string]string
	RawPayload []byte
}

// HandlePaymentEvent is the webhook entrypoint. An error return means the
// delivery was NOT handled and the provider should redeliver; nil means acked
// even when the event was skipped as irrelevant or duplicate.
func (c *Coordinator) HandlePaymentEvent(ctx context.Context, ev PaymentEvent) error {
	prior, err := c.Events.Claim(ctx, &models.WebhookEvent{
		EventID:    ev.ID,
		Type:       ev.Type,
		Outcome:    models.OutcomeProcessing,
		ReceivedAt: c.now(),
	})
	if err != nil {
		return fmt.Errorf("webhook event claim failed: %w", err)
	}
	if prior != nil && prior.Outcome != models.OutcomeFailed {
		log.Printf("🔁 Duplicate webhook %s (%s, prior outcome %s) — acked without reprocessing", ev.ID, ev.Type, prior.Outcome)
		return nil
	}

	if len(ev.RawPayload) > 0 && c.Archive != nil {
		payload := append([]byte(nil), ev.RawPayload...)
		eventID := ev.ID
		c.Effects.Dispatch([]SideEffect{{Name: "archive:webhook-payload", Run: func() error {
			archCtx, cancel := context.WithTimeout(context.Background(), effectTimeout)
			defer cancel()
			return c.Archive.ArchivePayload(archCtx, eventID, payload)
		}}})
	}

	outcome, orderID, procErr := c.processPaymentEvent(ctx, ev)

	errText := ""
	if procErr != nil {
		errText = procErr.Error()
	}
	if err := c.Events.Finalize(ctx, ev.ID, outcome, orderID, errText); err != nil {
		log.Printf("⚠️ Failed to finalize webhook event %s: %v", ev.ID, err)
	}
	return procErr
}

func (c *Coordinator) processPaymentEvent(ctx context.Context, ev PaymentEvent) (models.WebhookOutcome, string, error) {
	switch ev.Type {
	case "payment_intent.succeeded":
		return c.handlePaymentSucceeded(ctx, ev)
	case "payment_intent.payment_failed":
		return c.handlePaymentFailed(ctx, ev)
	default:
		log.Printf("ℹ️ Ignoring webhook event type %s", ev.Type)
		return models.OutcomeSkipped, "", nil
	}
}

func (c *Coordinator) handlePaymentSucceeded(ctx context.Context, ev PaymentEvent) (models.WebhookOutcome, string, error) {
	if orderID := ev.Metadata["order_id"]; orderID != "" {
		o, err := c.Orders.GetByID(ctx, orderID)
		if err != nil {
			return models.OutcomeFailed, orderID, fmt.Errorf("order %s from intent metadata not found: %w", orderID, err)
		}
		if o.PaymentStatus == models.PaymentPaid {
			log.Printf("🔁 Order %s already paid — webhook %s skipped", o.OrderNumber, ev.ID)
			return models.OutcomeSkipped, orderID, nil
		}
		if o.Terminal() {
			log.Printf("⚠️ Payment succeeded for %s order %s — skipped, needs manual review", o.Status, o.OrderNumber)
			return models.OutcomeSkipped, orderID, nil
		}
		if o.PaymentIntentID == "" {
			o.PaymentIntentID = ev.IntentID
		}
		if err := c.markPlacedPaid(ctx, o); err != nil {
			return models.OutcomeFailed, orderID, err
		}
		return models.OutcomeProcessed, orderID, nil
	}

	if raw := ev.Metadata["order_payload"]; raw != "" {
		o, err := c.materializeOrder(ctx, raw, ev.IntentID)
		if err != nil {
			return models.OutcomeFailed, "", err
		}
		return models.OutcomeProcessed, o.ID.String(), nil
	}

	log.Printf("⚠️ Webhook %s has no order_id and no order_payload — skipped", ev.ID)
	return models.OutcomeSkipped, "", nil
}

// materializeOrder creates the order promised by a payment-first intent. It
// is born directly placed/paid; pending never existed for it.
func (c *Coordinator) materializeOrder(ctx context.Context, raw, intentID string) (*models.Order, error) {
	var payload orderPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("order payload unmarshal failed: %w", err)
	}
	if len(payload.Items) == 0 {
		return nil, fmt.Errorf("order payload has no items")
	}

	number, err := c.EventNumbers.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("order number generation failed: %w", err)
	}

	now := c.now()
	o := &models.Order{
		ID:              gocql.TimeUUID(),
		OrderNumber:     number,
		UserID:          payload.UserID,
		UserEmail:       payload.Email,
		Items:           payload.Items,
		Status:          models.StatusPlaced,
		PaymentStatus:   models.PaymentPaid,
		PaymentIntentID: intentID,
		Delivery:        payload.Delivery,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.TotalAmount = o.ComputeTotal()
	o.StampStatus(models.StatusPlaced, now)

	if err := c.Orders.Insert(ctx, o); err != nil {
		return nil, err
	}

	c.Effects.Dispatch(c.fanoutPlaced(o))
	log.Printf("✅ Order %s materialized from payment-first intent %s", o.OrderNumber, intentID)
	return o, nil
}

func (c *Coordinator) handlePaymentFailed(ctx context.Context, ev PaymentEvent) (models.WebhookOutcome, string, error) {
	o, err := c.Orders.GetByPaymentIntent(ctx, ev.IntentID)
	if errors.Is(err, orders.ErrNotFound) {
		// Payment-first intents have no order to mark; nothing to do.
		log.Printf("ℹ️ Payment failed for intent %s with no matching order — skipped", ev.IntentID)
		return models.OutcomeSkipped, "", nil
	}
	if err != nil {
		return models.OutcomeFailed, "", fmt.Errorf("intent %s order lookup failed: %w", ev.IntentID, err)
	}

	o.PaymentStatus = models.PaymentFailed
	if err := c.Orders.Save(ctx, o); err != nil {
		return models.OutcomeFailed, o.ID.String(), err
	}

	c.Effects.Dispatch([]SideEffect{
		c.effectNotify(o, models.NotifPaymentFailed,
			"Payment failed",
			fmt.Sprintf("The payment for order %s did not go through. Please try again.", o.OrderNumber),
			models.PriorityHigh, nil),
		c.effectPush(o, c.orderEvent(o, realtime.EventPaymentFailed, nil), false),
	})

	log.Printf("❌ Payment failed for order %s (intent %s)", o.OrderNumber, ev.IntentID)
	return models.OutcomeProcessed, o.ID.String(), nil
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
