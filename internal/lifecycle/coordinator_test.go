package lifecycle

import (
	"context"
	"errors"
	"testing"

	"vkitchen_back_end/internal/models"

	"github.com/gocql/gocql"
)

func pickupDelivery() models.DeliveryInfo {
	return models.DeliveryInfo{Type: models.DeliveryTypePickup, Phone: "555-0100"}
}

func homeDelivery() models.DeliveryInfo {
	return models.DeliveryInfo{Type: models.DeliveryTypeDelivery, Address: "12 Main St", Phone: "555-0100"}
}

func TestCreateOrderSnapshotsMenuPrices(t *testing.T) {
	noodles := testDish("Dan Dan Noodles", 12.99)
	rolls := testDish("Spring Rolls", 4.99)
	f := newFixture(noodles, rolls)

	o, err := f.c.CreateOrder(context.Background(), "u1", "u1@test.dev", []NewOrderItem{
		{DishID: noodles.ID.String(), Quantity: 2},
		{DishID: rolls.ID.String(), Quantity: 1},
	}, homeDelivery())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if o.TotalAmount != 30.97 {
		t.Errorf("total = %.2f, want 30.97", o.TotalAmount)
	}
	if o.OrderNumber != "VK-000001" {
		t.Errorf("order number = %s", o.OrderNumber)
	}
	if o.Status != models.StatusPending || o.PaymentStatus != models.PaymentPending {
		t.Errorf("new order is %s/%s, want pending/pending", o.Status, o.PaymentStatus)
	}
	if _, ok := o.StatusTimestamps[string(models.StatusPending)]; !ok {
		t.Error("pending timestamp not stamped")
	}

	// Client can never dictate the price; the menu at order time does.
	noodles.Price = 99.99
	if o.Items[0].Price != 12.99 {
		t.Errorf("item price = %.2f, want the snapshot 12.99", o.Items[0].Price)
	}

	// A pending order has no fan-out.
	f.settle()
	if len(f.notifs.inserted) != 0 {
		t.Errorf("pending order produced %d notifications, want 0", len(f.notifs.inserted))
	}
	if f.mail.placedAlerts != 0 {
		t.Error("pending order should not alert the kitchen")
	}
}

func TestCreateOrderValidation(t *testing.T) {
	noodles := testDish("Dan Dan Noodles", 12.99)
	unavailable := testDish("Seasonal Special", 18.00)
	unavailable.Available = false
	f := newFixture(noodles, unavailable)

	cases := []struct {
		name     string
		items    []NewOrderItem
		delivery models.DeliveryInfo
	}{
		{"no items", nil, homeDelivery()},
		{"zero quantity", []NewOrderItem{{DishID: noodles.ID.String(), Quantity: 0}}, homeDelivery()},
		{"unknown dish", []NewOrderItem{{DishID: "f47ac10b-58cc-4372-a567-0e02b2c3d479", Quantity: 1}}, homeDelivery()},
		{"unavailable dish", []NewOrderItem{{DishID: unavailable.ID.String(), Quantity: 1}}, homeDelivery()},
		{"delivery without address", []NewOrderItem{{DishID: noodles.ID.String(), Quantity: 1}},
			models.DeliveryInfo{Type: models.DeliveryTypeDelivery, Phone: "555-0100"}},
		{"bad delivery type", []NewOrderItem{{DishID: noodles.ID.String(), Quantity: 1}},
			models.DeliveryInfo{Type: "drone", Phone: "555-0100"}},
		{"missing phone", []NewOrderItem{{DishID: noodles.ID.String(), Quantity: 1}},
			models.DeliveryInfo{Type: models.DeliveryTypePickup}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.c.CreateOrder(context.Background(), "u1", "u1@test.dev", tc.items, tc.delivery)
			if KindOf(err) != KindValidation {
				t.Errorf("error kind = %v, want validation (err: %v)", KindOf(err), err)
			}
		})
	}
}

func TestConfirmPaymentPlacesOrder(t *testing.T) {
	noodles := testDish("Dan Dan Noodles", 12.99)
	f := newFixture(noodles)

	o, _ := f.c.CreateOrder(context.Background(), "u1", "u1@test.dev",
		[]NewOrderItem{{DishID: noodles.ID.String(), Quantity: 1}}, pickupDelivery())

	confirmed, err := f.c.ConfirmPayment(context.Background(), o.ID.String(), "u1", "pi_client_123")
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	f.settle()

	if confirmed.Status != models.StatusPlaced || confirmed.PaymentStatus != models.PaymentPaid {
		t.Errorf("confirmed order is %s/%s, want placed/paid", confirmed.Status, confirmed.PaymentStatus)
	}
	if confirmed.PaymentIntentID != "pi_client_123" {
		t.Errorf("intent id = %s", confirmed.PaymentIntentID)
	}
	if confirmed.StatusTimestamps[string(models.StatusPlaced)] != fixedNow {
		t.Error("placed timestamp not stamped with clock time")
	}

	if got := len(f.notifs.byType(models.NotifOrderPlaced)); got != 1 {
		t.Errorf("order_placed notifications = %d, want 1", got)
	}
	if got := len(f.notifs.byType(models.NotifPaymentSuccess)); got != 1 {
		t.Errorf("payment_success notifications = %d, want 1", got)
	}
	if f.mail.placedAlerts != 1 || f.mail.confirmations != 1 {
		t.Errorf("mails = %d alerts / %d confirmations, want 1/1", f.mail.placedAlerts, f.mail.confirmations)
	}
}

func TestConfirmPaymentConflicts(t *testing.T) {
	noodles := testDish("Dan Dan Noodles", 12.99)
	f := newFixture(noodles)

	o, _ := f.c.CreateOrder(context.Background(), "u1", "u1@test.dev",
		[]NewOrderItem{{DishID: noodles.ID.String(), Quantity: 1}}, pickupDelivery())

	if _, err := f.c.ConfirmPayment(context.Background(), o.ID.String(), "u2", ""); KindOf(err) != KindAuthorization {
		t.Errorf("foreign user confirm: kind = %v, want authorization", KindOf(err))
	}

	if _, err := f.c.ConfirmPayment(context.Background(), o.ID.String(), "u1", "pi_1"); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	f.settle()
	before := len(f.notifs.inserted)

	// Whoever arrives second finds the order already paid.
	if _, err := f.c.ConfirmPayment(context.Background(), o.ID.String(), "u1", "pi_1"); KindOf(err) != KindConflict {
		t.Errorf("second confirm: kind = %v, want conflict", KindOf(err))
	}
	f.settle()
	if len(f.notifs.inserted) != before {
		t.Error("duplicate confirm produced new notifications")
	}
}

func TestUpdateOrderStatusForwardOnly(t *testing.T) {
	noodles := testDish("Dan Dan Noodles", 12.99)
	f := newFixture(noodles)

	o, _ := f.c.CreateOrder(context.Background(), "u1", "u1@test.dev",
		[]NewOrderItem{{DishID: noodles.ID.String(), Quantity: 1}}, homeDelivery())
	f.c.ConfirmPayment(context.Background(), o.ID.String(), "u1", "pi_1")

	if _, err := f.c.UpdateOrderStatus(context.Background(), o.ID.String(), models.StatusPreparing, ""); err != nil {
		t.Fatalf("placed→preparing: %v", err)
	}
	f.settle()
	if got := len(f.notifs.byType(models.NotifKitchenStarted)); got != 1 {
		t.Errorf("kitchen_started notifications = %d, want 1", got)
	}

	// Going backwards is not a thing.
	if _, err := f.c.UpdateOrderStatus(context.Background(), o.ID.String(), models.StatusPlaced, ""); KindOf(err) != KindValidation {
		t.Errorf("preparing→placed: kind = %v, want validation", KindOf(err))
	}
	if _, err := f.c.UpdateOrderStatus(context.Background(), o.ID.String(), models.StatusPending, ""); KindOf(err) != KindValidation {
		t.Errorf("→pending: kind = %v, want validation", KindOf(err))
	}

	updated, err := f.c.UpdateOrderStatus(context.Background(), o.ID.String(), models.StatusReady, "")
	if err != nil {
		t.Fatalf("preparing→ready: %v", err)
	}
	if updated.EstimatedReadyAt == nil || !updated.EstimatedReadyAt.Equal(fixedNow.Add(readyEstimate)) {
		t.Error("ready did not set the delivery estimate")
	}

	if _, err := f.c.UpdateOrderStatus(context.Background(), o.ID.String(), models.StatusOutForDelivery, ""); err != nil {
		t.Fatalf("ready→out_for_delivery: %v", err)
	}

	completed, err := f.c.UpdateOrderStatus(context.Background(), o.ID.String(), models.StatusCompleted, "left at door")
	if err != nil {
		t.Fatalf("→completed: %v", err)
	}
	if completed.DeliveredAt == nil {
		t.Error("completed did not record delivery time")
	}
	if completed.AdminNotes != "left at door" {
		t.Errorf("admin notes = %q", completed.AdminNotes)
	}

	// Terminal orders reject any further transition.
	if _, err := f.c.UpdateOrderStatus(context.Background(), o.ID.String(), models.StatusReady, ""); KindOf(err) != KindConflict {
		t.Errorf("transition after completed: kind = %v, want conflict", KindOf(err))
	}
}

func TestUpdateOrderStatusAdminCannotCancel(t *testing.T) {
	f := newFixture()
	_, err := f.c.UpdateOrderStatus(context.Background(), "any", models.StatusCancelled, "")
	if KindOf(err) != KindAuthorization {
		t.Errorf("admin cancel: kind = %v, want authorization", KindOf(err))
	}
}

func TestUpdateOrderStatusPickupNeverOutForDelivery(t *testing.T) {
	noodles := testDish("Dan Dan Noodles", 12.99)
	f := newFixture(noodles)

	o, _ := f.c.CreateOrder(context.Background(), "u1", "u1@test.dev",
		[]NewOrderItem{{DishID: noodles.ID.String(), Quantity: 1}}, pickupDelivery())
	f.c.ConfirmPayment(context.Background(), o.ID.String(), "u1", "pi_1")
	f.c.UpdateOrderStatus(context.Background(), o.ID.String(), models.StatusReady, "")
	f.settle()

	if got := len(f.notifs.byType(models.NotifReadyForPickup)); got != 1 {
		t.Errorf("ready_for_pickup notifications = %d, want 1", got)
	}

	_, err := f.c.UpdateOrderStatus(context.Background(), o.ID.String(), models.StatusOutForDelivery, "")
	if KindOf(err) != KindValidation {
		t.Errorf("pickup out_for_delivery: kind = %v, want validation", KindOf(err))
	}
}

func TestCancelOrderRefundsPaidOrder(t *testing.T) {
	noodles := testDish("Dan Dan Noodles", 12.99)
	f := newFixture(noodles)

	o, _ := f.c.CreateOrder(context.Background(), "u1", "u1@test.dev",
		[]NewOrderItem{{DishID: noodles.ID.String(), Quantity: 1}}, pickupDelivery())
	f.c.ConfirmPayment(context.Background(), o.ID.String(), "u1", "pi_real_1")
	f.settle()

	cancelled, err := f.c.CancelOrder(context.Background(), o.ID.String(), "u1")
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	f.settle()

	if cancelled.Status != models.StatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
	if cancelled.PaymentStatus != models.PaymentRefunded {
		t.Errorf("payment = %s, want refunded", cancelled.PaymentStatus)
	}
	if len(f.pay.refunds) != 1 || f.pay.refunds[0] != "pi_real_1" {
		t.Errorf("refunds = %v, want exactly one for pi_real_1", f.pay.refunds)
	}
	if got := len(f.notifs.byType(models.NotifOrderCancelled)); got != 1 {
		t.Errorf("order_cancelled notifications = %d, want 1", got)
	}
	if got := len(f.notifs.byType(models.NotifRefundIssued)); got != 1 {
		t.Errorf("refund_issued notifications = %d, want 1", got)
	}
	if f.mail.cancelAlerts != 1 {
		t.Errorf("cancellation alerts = %d, want 1", f.mail.cancelAlerts)
	}
}

func TestCancelOrderRefundFailureLeavesPaymentPaid(t *testing.T) {
	noodles := testDish("Dan Dan Noodles", 12.99)
	f := newFixture(noodles)
	f.pay.failRefund = true

	o, _ := f.c.CreateOrder(context.Background(), "u1", "u1@test.dev",
		[]NewOrderItem{{DishID: noodles.ID.String(), Quantity: 1}}, pickupDelivery())
	f.c.ConfirmPayment(context.Background(), o.ID.String(), "u1", "pi_real_1")

	cancelled, err := f.c.CancelOrder(context.Background(), o.ID.String(), "u1")
	if err != nil {
		t.Fatalf("CancelOrder should still cancel: %v", err)
	}
	f.settle()

	if cancelled.Status != models.StatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
	if cancelled.PaymentStatus != models.PaymentPaid {
		t.Errorf("payment = %s, want paid kept for manual review", cancelled.PaymentStatus)
	}
	if got := len(f.notifs.byType(models.NotifRefundIssued)); got != 0 {
		t.Errorf("refund_issued notifications = %d, want 0", got)
	}
}

func TestCancelOrderSimulatedPaymentSkipsProvider(t *testing.T) {
	noodles := testDish("Dan Dan Noodles", 12.99)
	f := newFixture(noodles)

	o, _ := f.c.CreateOrder(context.Background(), "u1", "u1@test.dev",
		[]NewOrderItem{{DishID: noodles.ID.String(), Quantity: 1}}, pickupDelivery())
	f.c.ConfirmPayment(context.Background(), o.ID.String(), "u1", "manual-test")

	cancelled, err := f.c.CancelOrder(context.Background(), o.ID.String(), "u1")
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}

	if cancelled.PaymentStatus != models.PaymentRefunded {
		t.Errorf("payment = %s, want refunded", cancelled.PaymentStatus)
	}
	if f.pay.refundCalls != 0 {
		t.Error("provider refund called for a simulated payment")
	}
}

func TestCancelOrderGuards(t *testing.T) {
	noodles := testDish("Dan Dan Noodles", 12.99)
	f := newFixture(noodles)

	o, _ := f.c.CreateOrder(context.Background(), "u1", "u1@test.dev",
		[]NewOrderItem{{DishID: noodles.ID.String(), Quantity: 1}}, pickupDelivery())

	if _, err := f.c.CancelOrder(context.Background(), o.ID.String(), "u2"); KindOf(err) != KindAuthorization {
		t.Errorf("foreign cancel: kind = %v, want authorization", KindOf(err))
	}

	if _, err := f.c.CancelOrder(context.Background(), o.ID.String(), "u1"); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if _, err := f.c.CancelOrder(context.Background(), o.ID.String(), "u1"); KindOf(err) != KindConflict {
		t.Errorf("double cancel: kind = %v, want conflict", KindOf(err))
	}
}

func TestOrderLookupSeparatesMissingFromOutage(t *testing.T) {
	noodles := testDish("Dan Dan Noodles", 12.99)
	f := newFixture(noodles)

	o, _ := f.c.CreateOrder(context.Background(), "u1", "u1@test.dev",
		[]NewOrderItem{{DishID: noodles.ID.String(), Quantity: 1}}, pickupDelivery())

	// Unknown id is the caller's 404.
	if _, err := f.c.CancelOrder(context.Background(), gocql.TimeUUID().String(), "u1"); KindOf(err) != KindNotFound {
		t.Errorf("missing order: kind = %v, want not found", KindOf(err))
	}

	// A store failure must not masquerade as a missing order.
	f.store.getErr = errors.New("connection refused")
	for name, call := range map[string]func() error{
		"CancelOrder": func() error {
			_, err := f.c.CancelOrder(context.Background(), o.ID.String(), "u1")
			return err
		},
		"UpdateOrderStatus": func() error {
			_, err := f.c.UpdateOrderStatus(context.Background(), o.ID.String(), models.StatusPreparing, "")
			return err
		},
		"ConfirmPayment": func() error {
			_, err := f.c.ConfirmPayment(context.Background(), o.ID.String(), "u1", "")
			return err
		},
		"DeleteOrder": func() error {
			return f.c.DeleteOrder(context.Background(), o.ID.String(), "u1", models.RoleCustomer)
		},
	} {
		if err := call(); KindOf(err) != KindInternal {
			t.Errorf("%s during outage: kind = %v, want internal", name, KindOf(err))
		}
	}
}

func TestDeleteOrderIsPerViewer(t *testing.T) {
	noodles := testDish("Dan Dan Noodles", 12.99)
	f := newFixture(noodles)

	o, _ := f.c.CreateOrder(context.Background(), "u1", "u1@test.dev",
		[]NewOrderItem{{DishID: noodles.ID.String(), Quantity: 1}}, pickupDelivery())

	// Active orders cannot be hidden.
	if err := f.c.DeleteOrder(context.Background(), o.ID.String(), "u1", models.RoleCustomer); KindOf(err) != KindConflict {
		t.Errorf("delete active order: kind = %v, want conflict", KindOf(err))
	}

	f.c.CancelOrder(context.Background(), o.ID.String(), "u1")

	if err := f.c.DeleteOrder(context.Background(), o.ID.String(), "u1", models.RoleCustomer); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}

	stored, _ := f.store.GetByID(context.Background(), o.ID.String())
	if stored.DeletedFor.VisibleTo(models.RoleCustomer) {
		t.Error("order still visible to customer after delete")
	}
	if !stored.DeletedFor.VisibleTo(models.RoleAdmin) {
		t.Error("customer delete hid the order from the admin too")
	}

	// The record survives for stats / the admin view.
	if stored.Status != models.StatusCancelled {
		t.Error("soft delete mutated order state")
	}
}

func TestRequestRefund(t *testing.T) {
	noodles := testDish("Dan Dan Noodles", 12.99)
	f := newFixture(noodles)

	o, _ := f.c.CreateOrder(context.Background(), "u1", "u1@test.dev",
		[]NewOrderItem{{DishID: noodles.ID.String(), Quantity: 1}}, pickupDelivery())

	// Unpaid orders are not refundable.
	if _, err := f.c.RequestRefund(context.Background(), o.ID.String(), "u1", "cold food"); KindOf(err) != KindConflict {
		t.Errorf("unpaid refund request: kind = %v, want conflict", KindOf(err))
	}

	f.c.ConfirmPayment(context.Background(), o.ID.String(), "u1", "pi_real_1")

	updated, err := f.c.RequestRefund(context.Background(), o.ID.String(), "u1", "cold food")
	if err != nil {
		t.Fatalf("RequestRefund: %v", err)
	}
	f.settle()

	if !updated.RefundRequested || updated.RefundReason != "cold food" {
		t.Error("refund request sub-state not recorded")
	}
	if updated.PaymentStatus != models.PaymentPaid {
		t.Error("requesting a refund must not execute one")
	}
	if f.pay.refundCalls != 0 {
		t.Error("provider refund called by a request")
	}
	if got := len(f.notifs.byType(models.NotifRefundRequested)); got != 1 {
		t.Errorf("refund_requested notifications = %d, want 1", got)
	}
	if f.pub.lastRole != models.RoleAdmin {
		t.Errorf("admin role event routed to %q", f.pub.lastRole)
	}

	if _, err := f.c.RequestRefund(context.Background(), o.ID.String(), "u1", "again"); KindOf(err) != KindConflict {
		t.Errorf("duplicate refund request: kind = %v, want conflict", KindOf(err))
	}
}

func TestProcessRefundCancelsAndRefundsTogether(t *testing.T) {
	noodles := testDish("Dan Dan Noodles", 12.99)
	f := newFixture(noodles)

	o, _ := f.c.CreateOrder(context.Background(), "u1", "u1@test.dev",
		[]NewOrderItem{{DishID: noodles.ID.String(), Quantity: 1}}, pickupDelivery())
	f.c.ConfirmPayment(context.Background(), o.ID.String(), "u1", "pi_real_1")

	refunded, err := f.c.ProcessRefund(context.Background(), o.ID.String(), "admin1", "approved")
	if err != nil {
		t.Fatalf("ProcessRefund: %v", err)
	}
	f.settle()

	if refunded.PaymentStatus != models.PaymentRefunded || refunded.Status != models.StatusCancelled {
		t.Errorf("refund left order %s/%s, want cancelled/refunded", refunded.Status, refunded.PaymentStatus)
	}
	if _, ok := refunded.StatusTimestamps[string(models.StatusCancelled)]; !ok {
		t.Error("cancelled timestamp not stamped")
	}
	if got := len(f.notifs.byType(models.NotifRefundProcessed)); got != 1 {
		t.Errorf("refund_processed notifications = %d, want 1", got)
	}
	if got := len(f.notifs.byType(models.NotifRefundIssued)); got != 1 {
		t.Errorf("refund_issued notifications = %d, want 1", got)
	}

	if _, err := f.c.ProcessRefund(context.Background(), o.ID.String(), "admin1", ""); KindOf(err) != KindConflict {
		t.Errorf("double refund: kind = %v, want conflict", KindOf(err))
	}
}

func TestProcessRefundProviderFailureMutatesNothing(t *testing.T) {
	noodles := testDish("Dan Dan Noodles", 12.99)
	f := newFixture(noodles)

	o, _ := f.c.CreateOrder(context.Background(), "u1", "u1@test.dev",
		[]NewOrderItem{{DishID: noodles.ID.String(), Quantity: 1}}, pickupDelivery())
	f.c.ConfirmPayment(context.Background(), o.ID.String(), "u1", "pi_real_1")
	f.pay.failRefund = true

	_, err := f.c.ProcessRefund(context.Background(), o.ID.String(), "admin1", "")
	if KindOf(err) != KindExternal {
		t.Fatalf("kind = %v, want external", KindOf(err))
	}

	stored, _ := f.store.GetByID(context.Background(), o.ID.String())
	if stored.PaymentStatus != models.PaymentPaid || stored.Status != models.StatusPlaced {
		t.Errorf("failed refund mutated order to %s/%s", stored.Status, stored.PaymentStatus)
	}
}
