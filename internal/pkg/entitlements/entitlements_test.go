package entitlements

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tapcardhq/tapcard/app/models"
)

func TestForPlan(t *testing.T) {
	basic := ForPlan(PlanBasic)
	assert.Equal(t, 1, basic.MaxCards)
	assert.False(t, basic.CustomBranding)

	premium := ForPlan(PlanPremium)
	assert.Equal(t, 10, premium.MaxCards)
	assert.True(t, premium.Analytics)
	assert.False(t, premium.PriorityQueue)

	business := ForPlan(PlanBusiness)
	assert.Equal(t, -1, business.MaxCards)
	assert.True(t, business.PriorityQueue)

	// Unknown plans degrade to basic rather than erroring.
	assert.Equal(t, basic, ForPlan(Plan("platinum")))
}

func TestEffectiveFeatures(t *testing.T) {
	txnID := "REF_1"
	future := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	active := &models.User{
		Plan:                  models.PlanBusiness,
		SubscriptionStatus:    models.SubscriptionActive,
		TransactionID:         &txnID,
		SubscriptionExpiresAt: &future,
	}
	assert.True(t, active.HasActiveSubscription())
	assert.Equal(t, ForPlan(PlanBusiness), EffectiveFeatures(active))

	// Case noise in the stored plan must not strip features.
	active.Plan = "Business"
	assert.Equal(t, ForPlan(PlanBusiness), EffectiveFeatures(active))

	lapsed := &models.User{
		Plan:                  models.PlanPremium,
		SubscriptionStatus:    models.SubscriptionActive,
		TransactionID:         &txnID,
		SubscriptionExpiresAt: &past,
	}
	assert.False(t, lapsed.HasActiveSubscription())
	assert.Equal(t, ForPlan(PlanBasic), EffectiveFeatures(lapsed))

	inactive := &models.User{Plan: models.PlanPremium, SubscriptionStatus: models.SubscriptionInactive}
	assert.Equal(t, ForPlan(PlanBasic), EffectiveFeatures(inactive))
}

func TestRank(t *testing.T) {
	assert.Greater(t, Rank(PlanBusiness), Rank(PlanPremium))
	assert.Greater(t, Rank(PlanPremium), Rank(PlanBasic))
	assert.Equal(t, 0, Rank(Plan("unknown")))
}
