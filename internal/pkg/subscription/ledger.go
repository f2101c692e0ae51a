package subscription

import (
	"github.com/tapcardhq/tapcard/app/models"
	"github.com/tapcardhq/tapcard/internal/pkg/payments"
)

// RevenueSummary is the reporting view over the ledger. Amounts are minor
// units, grouped per currency since the two currencies are never converted.
type RevenueSummary struct {
	TotalsByCurrency map[string]int64  `json:"totals_by_currency"`
	ByProvider       []ProviderRevenue `json:"by_provider"`
	ByMonth          []MonthlyRevenue  `json:"by_month"`
	ByPlan           []PlanRevenue     `json:"by_plan"`
}

type ProviderRevenue struct {
	Provider string `json:"provider"`
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
	Count    int64  `json:"count"`
}

type MonthlyRevenue struct {
	Month    string `json:"month"` // YYYY-MM
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

type PlanRevenue struct {
	Plan     string `json:"plan"`
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

// Ledger is the append-mostly record of payment attempts and results. The
// unique transaction_id index makes it the idempotency backstop for the whole
// subsystem.
type Ledger struct {
	repo Repository
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// Record inserts a transaction. A second insert with the same transaction id
// returns ErrDuplicateTransaction and leaves the first row untouched, even
// when other fields differ.
func (l *Ledger) Record(txn *models.Transaction) error {
	created, err := l.repo.CreateTransactionIfNotExists(txn)
	if err != nil {
		return err
	}
	if !created {
		return payments.ErrDuplicateTransaction
	}
	return nil
}

func (l *Ledger) FindByTransactionID(transactionID string) (*models.Transaction, error) {
	return l.repo.FindTransactionByTransactionID(transactionID)
}

// List returns transactions, optionally filtered by provider, newest first.
func (l *Ledger) List(provider string) ([]models.Transaction, error) {
	return l.repo.ListTransactions(provider)
}

// Aggregate computes revenue totals. Reporting only, not on the consistency
// path; it may read a lagged replica.
func (l *Ledger) Aggregate() (*RevenueSummary, error) {
	return l.repo.AggregateRevenue()
}
