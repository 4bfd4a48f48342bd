package models

import "time"

type WebhookOutcome string

const (
	OutcomeProcessing WebhookOutcome = "processing"
	OutcomeProcessed  WebhookOutcome = "processed"
	OutcomeSkipped    WebhookOutcome = "skipped"
	OutcomeFailed     WebhookOutcome = "failed"
)

// WebhookEvent is the dedup record for one external payment event. Stripe
// delivers at-least-once; the first row written for an event id wins.
type WebhookEvent struct {
	EventID     string         `json:"event_id"`
	Type        string         `json:"type"`
	Outcome     WebhookOutcome `json:"outcome"`
	OrderID     string         `json:"order_id,omitempty"`
	UserID      string         `json:"user_id,omitempty"`
	Amount      float64        `json:"amount,omitempty"`
	Error       string         `json:"error,omitempty"`
	ReceivedAt  time.Time      `json:"received_at"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
}
