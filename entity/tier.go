package entity

import "sort"

// TierRequirement describes what it takes to unlock a tier: a price, or a
// number of recorded invites.
type TierRequirement struct {
	Tier               int     `json:"tier" bson:"tier" validate:"gte=1"`
	ContentDescription string  `json:"content_description" bson:"content_description"`
	PriceUSD           float64 `json:"price_usd" bson:"price_usd" validate:"gte=0"`
	RequiredInvites    int     `json:"required_invites" bson:"required_invites" validate:"gte=0"`
}

// SortTiers orders requirements by tier number in place.
func SortTiers(tiers []TierRequirement) {
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Tier < tiers[j].Tier })
}

// FindTier returns the requirement for a tier number, or nil.
func FindTier(tiers []TierRequirement, tier int) *TierRequirement {
	for i := range tiers {
		if tiers[i].Tier == tier {
			return &tiers[i]
		}
	}
	return nil
}
