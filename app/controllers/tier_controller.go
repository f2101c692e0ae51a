package controllers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/tapcardhq/tapcard/app/models"
	"github.com/tapcardhq/tapcard/internal/pkg/database"
	"github.com/tapcardhq/tapcard/internal/pkg/entitlements"
	"github.com/tapcardhq/tapcard/internal/pkg/subscription"
)

type tierView struct {
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	Features        []string              `json:"features"`
	Entitlements    entitlements.Features `json:"entitlements"`
	Currency        string                `json:"currency"`
	MonthlyPrice    int64                 `json:"monthly_price"`
	YearlyPrice     int64                 `json:"yearly_price"`
	TrialPeriodDays int                   `json:"trial_period_days"`
	AutoRenew       bool                  `json:"auto_renew"`
}

// HandleListTiers returns the public tier catalog priced in the caller's
// currency. Explicit ?currency= wins over edge geolocation; everything else
// sees USD.
func HandleListTiers(c *fiber.Ctx) error {
	currency := subscription.ResolveCurrency(c.Query("currency"), clientCountry(c))

	catalog := subscription.NewCatalog(subscription.NewRepository(database.GetDB()))
	tiers, err := catalog.Tiers()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "tier_list_failed"})
	}

	views := make([]tierView, 0, len(tiers))
	for _, t := range tiers {
		views = append(views, newTierView(t, currency))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":   "success",
		"currency": currency,
		"data":     views,
	})
}

func newTierView(t models.Tier, currency string) tierView {
	var features []string
	if t.Features != "" {
		// Feature lists are operator-entered JSON; a broken one renders empty
		// rather than failing the whole catalog.
		_ = json.Unmarshal([]byte(t.Features), &features)
	}

	return tierView{
		Name:            t.Name,
		Description:     t.Description,
		Features:        features,
		Entitlements:    entitlements.ForPlan(entitlements.Plan(t.Name)),
		Currency:        currency,
		MonthlyPrice:    t.Monthly.Price(currency),
		YearlyPrice:     t.Yearly.Price(currency),
		TrialPeriodDays: t.TrialPeriodDays,
		AutoRenew:       t.AutoRenew,
	}
}
