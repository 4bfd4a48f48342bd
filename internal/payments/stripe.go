package payments

import (
	"log"
	"os"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/paymentmethod"
	"github.com/stripe/stripe-go/v83/refund"
	"github.com/stripe/stripe-go/v83/webhook"
)

// Intent is the slice of a Stripe PaymentIntent the rest of the backend needs.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Status       string
	Metadata     map[string]string
}

type Refund struct {
	ID     string
	Amount int64
	Status string
}

type Method struct {
	Type   string
	Brand  string
	Wallet string
}

// StripeProvider wraps the Stripe SDK package-level calls. stripe.Key is set
// once at startup.
type StripeProvider struct{}

func NewStripeProvider() *StripeProvider {
	return &StripeProvider{}
}

func (p *StripeProvider) CreateIntent(amount int64, currency string, metadata map[string]string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: metadata,
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		log.Println("❌ Stripe intent creation error:", err)
		return nil, err
	}

	return fromStripeIntent(intent), nil
}

func (p *StripeProvider) RetrieveIntent(id string) (*Intent, error) {
	intent, err := paymentintent.Get(id, nil)
	if err != nil {
		return nil, err
	}
	return fromStripeIntent(intent), nil
}

func (p *StripeProvider) CreateRefund(intentID, reason string, metadata map[string]string) (*Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Reason:        stripe.String(reason),
		Metadata:      metadata,
	}

	r, err := refund.New(params)
	if err != nil {
		log.Printf("❌ Stripe refund error for %s: %v", intentID, err)
		return nil, err
	}

	return &Refund{ID: r.ID, Amount: r.Amount, Status: string(r.Status)}, nil
}

func (p *StripeProvider) RetrievePaymentMethod(id string) (*Method, error) {
	pm, err := paymentmethod.Get(id, nil)
	if err != nil {
		return nil, err
	}

	m := &Method{Type: string(pm.Type)}
	if pm.Card != nil {
		m.Brand = string(pm.Card.Brand)
		if pm.Card.Wallet != nil {
			m.Wallet = string(pm.Card.Wallet.Type)
		}
	}
	return m, nil
}

// VerifyWebhook checks the Stripe-Signature header against the configured
// endpoint secret. Verification is mandatory: without the secret every
// delivery is rejected.
func (p *StripeProvider) VerifyWebhook(payload []byte, signatureHeader string) (stripe.Event, error) {
	secret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	return webhook.ConstructEvent(payload, signatureHeader, secret)
}

func fromStripeIntent(intent *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Status:       string(intent.Status),
		Metadata:     intent.Metadata,
	}
}
