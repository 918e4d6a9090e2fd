package entity

import "math"

// Progress is what the dashboard derives from a user's counters and the
// tier table. It never changes the counters.
type Progress struct {
	CurrentTier  *TierRequirement `json:"current_tier_info"`
	NextTier     *TierRequirement `json:"next_tier"`
	Remaining    int              `json:"remaining"`
	PercentLabel int              `json:"percent"`
	BarWidth     float64          `json:"bar_width"`
	Complete     bool             `json:"complete"`
	EarnedTier   int              `json:"earned_tier"`
}

// NewProgress derives dashboard progress. The next tier is CurrentTier+1;
// with no such tier the user is at max and progress is 100%.
func NewProgress(user *User, tiers []TierRequirement) Progress {
	p := Progress{
		CurrentTier: FindTier(tiers, user.CurrentTier),
		NextTier:    FindTier(tiers, user.CurrentTier+1),
		EarnedTier:  EarnedTier(user.TotalInvites, tiers),
	}
	if p.NextTier == nil {
		p.PercentLabel = 100
		p.BarWidth = 100
		p.Complete = true
		return p
	}
	p.Remaining = RemainingInvites(user.TotalInvites, p.NextTier.RequiredInvites)
	p.PercentLabel, p.BarWidth = Percent(user.TotalInvites, p.NextTier.RequiredInvites)
	return p
}

// RemainingInvites never goes below zero.
func RemainingInvites(total, required int) int {
	if total >= required {
		return 0
	}
	return required - total
}

// Percent returns the rounded label value and the bar width capped at 100.
// A zero requirement counts as complete.
func Percent(total, required int) (int, float64) {
	if required <= 0 {
		return 100, 100
	}
	raw := float64(total) / float64(required) * 100
	return int(math.Round(raw)), math.Min(raw, 100)
}

// EarnedTier is the highest tier whose invite requirement is met. It is
// shown as eligibility only; current_tier is owned by the backend.
func EarnedTier(totalInvites int, tiers []TierRequirement) int {
	earned := 0
	for _, t := range tiers {
		if t.RequiredInvites <= totalInvites && t.Tier > earned {
			earned = t.Tier
		}
	}
	return earned
}

// TierAccess is the unlock state of one tier for one user.
type TierAccess struct {
	Tier         int              `json:"tier"`
	Info         *TierRequirement `json:"info"`
	Unlocked     bool             `json:"unlocked"`
	Remaining    int              `json:"remaining"`
	PercentLabel int              `json:"percent"`
	BarWidth     float64          `json:"bar_width"`
}

// NewTierAccess reports a tier as unlocked when the user's current tier is at
// or above it. Info is nil for a tier missing from the table.
func NewTierAccess(user *User, tier int, tiers []TierRequirement) TierAccess {
	a := TierAccess{
		Tier:     tier,
		Info:     FindTier(tiers, tier),
		Unlocked: user.CurrentTier >= tier,
	}
	if a.Info != nil {
		a.Remaining = RemainingInvites(user.TotalInvites, a.Info.RequiredInvites)
		a.PercentLabel, a.BarWidth = Percent(user.TotalInvites, a.Info.RequiredInvites)
	}
	return a
}
