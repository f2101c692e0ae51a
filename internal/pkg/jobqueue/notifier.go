package jobqueue

import (
	"github.com/gofiber/fiber/v2/log"

	"github.com/tapcardhq/tapcard/app/models"
)

// PaymentNotifier turns confirmed payments into queued email jobs. It
// satisfies subscription.Notifier; enqueueing keeps SMTP latency out of the
// webhook response path.
type PaymentNotifier struct {
	queue *Queue
}

func NewPaymentNotifier(queue *Queue) *PaymentNotifier {
	return &PaymentNotifier{queue: queue}
}

func (n *PaymentNotifier) PaymentConfirmed(user *models.User, txn *models.Transaction) {
	payload := PaymentEmailJobPayload{
		UserID:        user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Plan:          txn.Plan,
		BillingCycle:  txn.BillingCycle,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Provider:      txn.Provider,
		TransactionID: txn.TransactionID,
		ReferenceID:   txn.ReferenceID,
		Type:          txn.Type,
	}

	if _, err := n.queue.EnqueueJob(JobTypeSendPaymentEmail, payload.ToMap()); err != nil {
		log.Errorf("[JobQueue] Failed to enqueue payment email for user %d: %v", user.ID, err)
	}
}
