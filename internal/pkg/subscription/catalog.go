package subscription

import (
	"fmt"
	"strings"

	"github.com/tapcardhq/tapcard/app/models"
	"github.com/tapcardhq/tapcard/internal/pkg/payments"
)

// PriceInfo is the resolved price of one (plan, cycle, currency) combination.
type PriceInfo struct {
	Amount           int64
	Currency         string
	DurationInDays   int
	ProviderPlanCode string
	TrialPeriodDays  int
}

// Catalog is the read model over admin-managed tiers.
type Catalog struct {
	repo Repository
}

func NewCatalog(repo Repository) *Catalog {
	return &Catalog{repo: repo}
}

// Price resolves the exact stored price for a plan/cycle/currency. There is no
// silent fallback between combinations; an unknown one is ErrInvalidPlan.
func (c *Catalog) Price(plan, cycle, currency string) (*PriceInfo, error) {
	plan = NormalizePlan(plan)
	cycle = NormalizeCycle(cycle)
	if !models.IsValidPlan(plan) || !models.IsValidCycle(cycle) {
		return nil, fmt.Errorf("%w: %s/%s", payments.ErrInvalidPlan, plan, cycle)
	}

	tier, err := c.repo.GetTierByName(plan)
	if err != nil {
		return nil, err
	}
	pricing, ok := tier.Pricing(cycle)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", payments.ErrInvalidPlan, plan, cycle)
	}

	return &PriceInfo{
		Amount:           pricing.Price(currency),
		Currency:         currency,
		DurationInDays:   pricing.DurationInDays,
		ProviderPlanCode: pricing.ProviderPlanCode,
		TrialPeriodDays:  tier.TrialPeriodDays,
	}, nil
}

// Tiers lists the catalog for presentation.
func (c *Catalog) Tiers() ([]models.Tier, error) {
	return c.repo.ListTiers()
}

// ResolveCurrency picks the display/charge currency: an explicit parameter
// wins, then edge geo headers (cf-ipcountry), defaulting to the foreign
// currency when detection is inconclusive.
func ResolveCurrency(explicit, country string) string {
	switch strings.ToUpper(strings.TrimSpace(explicit)) {
	case models.CurrencyLocal:
		return models.CurrencyLocal
	case models.CurrencyForeign:
		return models.CurrencyForeign
	}
	if strings.EqualFold(strings.TrimSpace(country), "NG") {
		return models.CurrencyLocal
	}
	return models.CurrencyForeign
}

func NormalizePlan(plan string) string {
	return strings.ToLower(strings.TrimSpace(plan))
}

func NormalizeCycle(cycle string) string {
	return strings.ToLower(strings.TrimSpace(cycle))
}
