package entitlements

import (
	"strings"

	"github.com/tapcardhq/tapcard/app/models"
)

type Plan string

const (
	PlanBasic    Plan = models.PlanBasic
	PlanPremium  Plan = models.PlanPremium
	PlanBusiness Plan = models.PlanBusiness
)

// Features is what a plan unlocks in the card platform.
type Features struct {
	MaxCards       int  `json:"max_cards"` // -1 means unlimited
	MaxTeamSeats   int  `json:"max_team_seats"`
	CustomBranding bool `json:"custom_branding"`
	Analytics      bool `json:"analytics"`
	PriorityQueue  bool `json:"priority_queue"` // card-print order handling
}

// ForPlan returns the feature set of a plan. Unknown plans fall back to basic.
func ForPlan(plan Plan) Features {
	switch plan {
	case PlanBusiness:
		return Features{MaxCards: -1, MaxTeamSeats: 25, CustomBranding: true, Analytics: true, PriorityQueue: true}
	case PlanPremium:
		return Features{MaxCards: 10, MaxTeamSeats: 3, CustomBranding: true, Analytics: true}
	default:
		return Features{MaxCards: 1, MaxTeamSeats: 1}
	}
}

// EffectiveFeatures resolves a user's features from their tier state; a lapsed
// or inactive subscription grants basic only.
func EffectiveFeatures(u *models.User) Features {
	if !u.HasActiveSubscription() {
		return ForPlan(PlanBasic)
	}
	return ForPlan(Plan(strings.ToLower(u.Plan)))
}

func Rank(plan Plan) int {
	switch plan {
	case PlanBusiness:
		return 2
	case PlanPremium:
		return 1
	default:
		return 0
	}
}
