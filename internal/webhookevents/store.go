package webhookevents

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"vkitchen_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
)

// Store is the dedup ledger for externally delivered payment events. A row is
// claimed with a lightweight transaction before any processing, so a second
// delivery of the same event id can never run side effects twice.
type Store struct {
	session *gocql.Session
}

func NewStore(session *gocql.Session) *Store {
	return &Store{session: session}
}

// Claim writes the processing record for an event id if none exists. When the
// id was already claimed, the prior record is returned instead so the caller
// can distinguish duplicate-success from a retryable earlier failure.
func (s *Store) Claim(ctx context.Context, ev *models.WebhookEvent) (*models.WebhookEvent, error) {
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now()
	}
	ev.Outcome = models.OutcomeProcessing

	prior := make(map[string]interface{})
	applied, err := s.session.Query(`
		INSERT INTO webhook_events (event_id, type, outcome, order_id, user_id, amount, error, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`,
		ev.EventID, ev.Type, string(ev.Outcome), ev.OrderID, ev.UserID, ev.Amount, "", ev.ReceivedAt,
	).WithContext(ctx).MapScanCAS(prior)
	if err != nil {
		return nil, err
	}
	if applied {
		return nil, nil
	}

	existing := &models.WebhookEvent{EventID: ev.EventID}
	if v, ok := prior["type"].(string); ok {
		existing.Type = v
	}
	if v, ok := prior["outcome"].(string); ok {
		existing.Outcome = models.WebhookOutcome(v)
	}
	if v, ok := prior["order_id"].(string); ok {
		existing.OrderID = v
	}
	if v, ok := prior["error"].(string); ok {
		existing.Error = v
	}
	if v, ok := prior["received_at"].(time.Time); ok {
		existing.ReceivedAt = v
	}
	return existing, nil
}

func (s *Store) Get(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	ev := &models.WebhookEvent{EventID: eventID}
	var outcome string
	var processedAt time.Time

	err := s.session.Query(`
		SELECT type, outcome, order_id, user_id, amount, error, received_at, processed_at
		FROM webhook_events WHERE event_id = ?`, eventID).WithContext(ctx).
		Scan(&ev.Type, &outcome, &ev.OrderID, &ev.UserID, &ev.Amount, &ev.Error, &ev.ReceivedAt, &processedAt)
	if err != nil {
		return nil, err
	}

	ev.Outcome = models.WebhookOutcome(outcome)
	if !processedAt.IsZero() {
		ev.ProcessedAt = &processedAt
	}
	return ev, nil
}

// Finalize records the processing outcome. A failed outcome keeps the id
// retryable on redelivery; processed and skipped never reprocess.
func (s *Store) Finalize(ctx context.Context, eventID string, outcome models.WebhookOutcome, orderID, errText string) error {
	return s.session.Query(`
		UPDATE webhook_events SET outcome = ?, order_id = ?, error = ?, processed_at = ?
		WHERE event_id = ?`,
		string(outcome), orderID, errText, time.Now(), eventID,
	).WithContext(ctx).Exec()
}

// Archiver stores the raw webhook body in MinIO, one object per event id.
// Strictly best-effort audit material.
type Archiver struct {
	client *minio.Client
	bucket string
}

func NewArchiver(client *minio.Client) *Archiver {
	return &Archiver{client: client, bucket: os.Getenv("MINIO_BUCKET")}
}

func (a *Archiver) ArchivePayload(ctx context.Context, eventID string, payload []byte) error {
	if a == nil || a.client == nil {
		return nil
	}

	objectName := fmt.Sprintf("webhooks/%s/%s.json", time.Now().Format("2006-01-02"), eventID)
	_, err := a.client.PutObject(ctx, a.bucket, objectName,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return err
	}

	log.Printf("🗄️ Webhook payload archived: %s", objectName)
	return nil
}
