package utils

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"time"

	"vkitchen_back_end/internal/models"

	"github.com/wneessen/go-mail"
)

const (
	emailMaxAttempts = 3
	emailBackoffStep = 2 * time.Second
)

// Mailer sends transactional mail over SMTP. Every send is retried a few
// times with linear backoff and then abandoned; callers treat mail as
// best-effort.
type Mailer struct{}

func NewMailer() *Mailer {
	return &Mailer{}
}

func (m *Mailer) send(to, subject, htmlBody string, attachment []byte, filename string) error {
	msg := mail.NewMsg()

	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "noreply@vkitchen.local"
	}
	if err := msg.From(from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if attachment != nil {
		msg.AttachReader(filename, bytes.NewReader(attachment))
	}

	client, err := mail.NewClient(os.Getenv("SMTP_HOST"),
		mail.WithPort(587),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(os.Getenv("SMTP_USERNAME")),
		mail.WithPassword(os.Getenv("SMTP_PASSWORD")),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= emailMaxAttempts; attempt++ {
		if lastErr = client.DialAndSend(msg); lastErr == nil {
			log.Printf("📧 Email sent to %s (%s)", to, subject)
			return nil
		}
		log.Printf("⚠️ Email attempt %d/%d to %s failed: %v", attempt, emailMaxAttempts, to, lastErr)
		if attempt < emailMaxAttempts {
			time.Sleep(time.Duration(attempt) * emailBackoffStep)
		}
	}
	return lastErr
}

func adminEmail() string {
	addr := os.Getenv("ORDER_ALERT_EMAIL")
	if addr == "" {
		addr = "kitchen@vkitchen.local"
	}
	return addr
}

// SendOrderPlacedAlert tells the kitchen a new paid order arrived.
func (m *Mailer) SendOrderPlacedAlert(o *models.Order) error {
	subject := fmt.Sprintf("🍽️ New order %s — %.2f", o.OrderNumber, o.TotalAmount)
	return m.send(adminEmail(), subject, generateOrderAlertHTML(o, "A new order has been placed and paid."), nil, "")
}

// SendCancellationAlert tells the kitchen an order was cancelled.
func (m *Mailer) SendCancellationAlert(o *models.Order) error {
	subject := fmt.Sprintf("❌ Order %s cancelled", o.OrderNumber)
	return m.send(adminEmail(), subject, generateOrderAlertHTML(o, "The customer cancelled this order."), nil, "")
}

// SendStatusUpdate mails the customer about a fulfillment milestone. Pickup
// orders that just became ready get a QR code the counter can scan.
func (m *Mailer) SendStatusUpdate(o *models.Order, status models.OrderStatus) error {
	subject := getStatusEmailSubject(status)
	html := generateStatusEmailHTML(o, status)

	if status == models.StatusReady && o.Delivery.Type == models.DeliveryTypePickup {
		if qr, err := GeneratePickupQR(o.OrderNumber); err == nil {
			html = appendPickupQR(html, qr)
		} else {
			log.Printf("⚠️ Pickup QR generation failed for %s: %v", o.OrderNumber, err)
		}
	}

	return m.send(o.UserEmail, subject, html, nil, "")
}

// SendOrderConfirmation mails the customer their receipt. The PDF render is
// best-effort; the mail goes out without it when the renderer fails.
func (m *Mailer) SendOrderConfirmation(o *models.Order) error {
	subject := fmt.Sprintf("✅ Your V-Kitchen order %s is confirmed", o.OrderNumber)
	html := generateOrderConfirmationHTML(o)

	pdf, err := RenderReceiptPDF(o.ID.String())
	if err != nil {
		log.Printf("⚠️ Receipt PDF render failed for %s: %v", o.OrderNumber, err)
		pdf = nil
	}

	return m.send(o.UserEmail, subject, html, pdf, "vkitchen_receipt.pdf")
}
