package jobqueue

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/tapcardhq/tapcard/app/models"
	"github.com/tapcardhq/tapcard/internal/pkg/mail"
)

// processPaymentEmailJob sends the payment confirmation email for a recorded
// transaction.
func (q *Queue) processPaymentEmailJob(ctx context.Context, job *Job) error {
	_ = ctx

	payload, err := PaymentEmailJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid payment email payload: %w", err)
	}

	if payload.Email == "" {
		// Nothing to deliver to; treat as done rather than retrying forever.
		log.Warnf("[JobQueue] Payment email job %s has no recipient (user %d)", job.ID, payload.UserID)
		return nil
	}

	subject, body := buildPaymentEmail(payload)
	if err := mail.SendMail(payload.Email, subject, body); err != nil {
		return fmt.Errorf("failed to send payment email to %s: %w", payload.Email, err)
	}

	log.Infof("[JobQueue] Payment email sent to user %d (transaction %s)", payload.UserID, payload.TransactionID)
	return nil
}

func buildPaymentEmail(p *PaymentEmailJobPayload) (string, string) {
	name := p.Name
	if name == "" {
		name = "there"
	}

	if p.Type == models.TransactionTypeCardOrder {
		subject := "Your card order payment was received"
		body := fmt.Sprintf(
			"<p>Hi %s,</p>"+
				"<p>We received your payment of <strong>%s</strong> for your card order.</p>"+
				"<p>Reference: %s</p>"+
				"<p>Your order is now in the print queue.</p>",
			name, FormatAmount(p.Amount, p.Currency), p.ReferenceID,
		)
		return subject, body
	}

	subject := fmt.Sprintf("Your %s subscription is active", titleCase(p.Plan))
	body := fmt.Sprintf(
		"<p>Hi %s,</p>"+
			"<p>Your payment of <strong>%s</strong> was successful and your <strong>%s</strong> plan (%s) is now active.</p>"+
			"<p>Reference: %s</p>"+
			"<p>Thanks for using TapCard.</p>",
		name, FormatAmount(p.Amount, p.Currency), p.Plan, p.BillingCycle, p.ReferenceID,
	)
	return subject, body
}

// FormatAmount renders a minor-unit amount as a display string, e.g. 500000
// NGN becomes "NGN 5,000.00".
func FormatAmount(minor int64, currency string) string {
	major := minor / 100
	cents := minor % 100
	if cents < 0 {
		cents = -cents
	}
	return fmt.Sprintf("%s %s.%02d", strings.ToUpper(currency), groupThousands(major), cents)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}
