package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vkitchen_back_end/internal/models"

	"github.com/gocql/gocql"
)

var ErrNotFound = errors.New("order not found")

// Store persists the order aggregate in the orders keyspace. Line items are
// kept as a JSON blob; everything queried on is a first-class column.
type Store struct {
	session *gocql.Session
}

func NewStore(session *gocql.Session) *Store {
	return &Store{session: session}
}

const orderColumns = `order_id, order_number, user_id, user_email, items_json, total_amount,
		status, payment_status, status_timestamps, payment_intent_id, refund_id,
		refund_requested, refund_reason, refund_requested_at,
		delivery_type, delivery_address, delivery_phone, delivery_instructions,
		admin_notes, estimated_ready_at, delivered_at, deleted_for, created_at, updated_at`

func (s *Store) Insert(ctx context.Context, o *models.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("items serialization failed: %w", err)
	}

	return s.session.Query(`
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.OrderNumber, o.UserID, o.UserEmail, string(itemsJSON), o.TotalAmount,
		string(o.Status), string(o.PaymentStatus), o.StatusTimestamps, o.PaymentIntentID, o.RefundID,
		o.RefundRequested, o.RefundReason, timeOrNil(o.RefundRequestedAt),
		o.Delivery.Type, o.Delivery.Address, o.Delivery.Phone, o.Delivery.Instructions,
		o.AdminNotes, timeOrNil(o.EstimatedReadyAt), timeOrNil(o.DeliveredAt),
		[]string(o.DeletedFor), o.CreatedAt, o.UpdatedAt,
	).WithContext(ctx).Exec()
}

// Save rewrites every mutable column. Last writer wins per order record.
func (s *Store) Save(ctx context.Context, o *models.Order) error {
	o.UpdatedAt = time.Now()

	return s.session.Query(`
		UPDATE orders SET
			status = ?, payment_status = ?, status_timestamps = ?,
			payment_intent_id = ?, refund_id = ?,
			refund_requested = ?, refund_reason = ?, refund_requested_at = ?,
			admin_notes = ?, estimated_ready_at = ?, delivered_at = ?,
			deleted_for = ?, updated_at = ?
		WHERE order_id = ?`,
		string(o.Status), string(o.PaymentStatus), o.StatusTimestamps,
		o.PaymentIntentID, o.RefundID,
		o.RefundRequested, o.RefundReason, timeOrNil(o.RefundRequestedAt),
		o.AdminNotes, timeOrNil(o.EstimatedReadyAt), timeOrNil(o.DeliveredAt),
		[]string(o.DeletedFor), o.UpdatedAt,
		o.ID,
	).WithContext(ctx).Exec()
}

func (s *Store) GetByID(ctx context.Context, id string) (*models.Order, error) {
	orderUUID, err := gocql.ParseUUID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	q := s.session.Query(`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, orderUUID).
		WithContext(ctx)
	return s.scanOne(q)
}

func (s *Store) GetByPaymentIntent(ctx context.Context, intentID string) (*models.Order, error) {
	q := s.session.Query(`SELECT `+orderColumns+` FROM orders WHERE payment_intent_id = ? ALLOW FILTERING`,
		intentID).WithContext(ctx)
	return s.scanOne(q)
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	iter := s.session.Query(`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ALLOW FILTERING`,
		userID).WithContext(ctx).Iter()
	return s.collect(iter)
}

func (s *Store) ListAll(ctx context.Context) ([]models.Order, error) {
	iter := s.session.Query(`SELECT ` + orderColumns + ` FROM orders`).WithContext(ctx).Iter()
	return s.collect(iter)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.session.Query(`SELECT COUNT(*) FROM orders`).WithContext(ctx).Scan(&count)
	return count, err
}

// NumberExists reports whether an order number is already taken.
func (s *Store) NumberExists(ctx context.Context, number string) (bool, error) {
	var count int
	err := s.session.Query(`SELECT COUNT(*) FROM orders WHERE order_number = ? ALLOW FILTERING`,
		number).WithContext(ctx).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) scanOne(q *gocql.Query) (*models.Order, error) {
	o, err := scanOrder(q.Scan)
	if err == gocql.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) collect(iter *gocql.Iter) ([]models.Order, error) {
	var out []models.Order
	for {
		o, err := scanOrder(func(dest ...interface{}) error {
			if !iter.Scan(dest...) {
				return gocql.ErrNotFound
			}
			return nil
		})
		if err != nil {
			break
		}
		out = append(out, *o)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanOrder(scan func(dest ...interface{}) error) (*models.Order, error) {
	var (
		o                 models.Order
		itemsJSON         string
		status            string
		paymentStatus     string
		refundRequestedAt time.Time
		estimatedReadyAt  time.Time
		deliveredAt       time.Time
		deletedFor        []string
	)

	err := scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.UserEmail, &itemsJSON, &o.TotalAmount,
		&status, &paymentStatus, &o.StatusTimestamps, &o.PaymentIntentID, &o.RefundID,
		&o.RefundRequested, &o.RefundReason, &refundRequestedAt,
		&o.Delivery.Type, &o.Delivery.Address, &o.Delivery.Phone, &o.Delivery.Instructions,
		&o.AdminNotes, &estimatedReadyAt, &deliveredAt, &deletedFor, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if itemsJSON != "" {
		if err := json.Unmarshal([]byte(itemsJSON), &o.Items); err != nil {
			return nil, fmt.Errorf("items deserialization failed: %w", err)
		}
	}
	o.Status = models.OrderStatus(status)
	o.PaymentStatus = models.PaymentStatus(paymentStatus)
	o.RefundRequestedAt = ptrOrNil(refundRequestedAt)
	o.EstimatedReadyAt = ptrOrNil(estimatedReadyAt)
	o.DeliveredAt = ptrOrNil(deliveredAt)
	o.DeletedFor = models.DeletedFor(deletedFor)

	return &o, nil
}

func timeOrNil(t *time.Time) interface{} {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func ptrOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
