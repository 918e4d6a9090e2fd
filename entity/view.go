package entity

import (
	"strconv"
	"strings"
)

const (
	ViewDashboard   = "dashboard"
	ViewFreePreview = "free-preview"

	tierViewPrefix = "tier-"
)

type RouteKind int

const (
	RouteDashboard RouteKind = iota
	RoutePreview
	RouteTier
)

// Route is a parsed view selector.
type Route struct {
	Kind RouteKind
	Tier int
}

// ParseView maps a selector to a route. "tier-<N>" with a positive N selects
// tier content; anything unrecognized falls back to the dashboard.
func ParseView(selector string) Route {
	switch selector {
	case ViewDashboard:
		return Route{Kind: RouteDashboard}
	case ViewFreePreview:
		return Route{Kind: RoutePreview}
	}
	if rest, ok := strings.CutPrefix(selector, tierViewPrefix); ok {
		n, err := strconv.Atoi(rest)
		if err == nil && n > 0 {
			return Route{Kind: RouteTier, Tier: n}
		}
	}
	return Route{Kind: RouteDashboard}
}

// TierView is the selector for a tier's content page.
func TierView(tier int) string {
	return tierViewPrefix + strconv.Itoa(tier)
}

// AppState is the per-visitor session state. Transitions return a new value
// and never modify the receiver.
type AppState struct {
	UserID     string
	View       string
	InviteCode string
}

func (s AppState) SignedIn() bool {
	return s.UserID != ""
}

// CurrentView returns the selector to render, defaulting to the dashboard.
func (s AppState) CurrentView() string {
	if s.View == "" {
		return ViewDashboard
	}
	return s.View
}

func (s AppState) WithUser(userID string) AppState {
	s.UserID = userID
	s.View = ViewDashboard
	return s
}

func (s AppState) Navigate(view string) AppState {
	s.View = view
	return s
}

// WithInvite records the invite code from the first page load only.
func (s AppState) WithInvite(code string) AppState {
	if s.InviteCode == "" {
		s.InviteCode = strings.TrimSpace(code)
	}
	return s
}

// SignedOut drops the user and view but keeps the invite code, so a visitor
// who arrived through an invite link still registers with it.
func (s AppState) SignedOut() AppState {
	return AppState{InviteCode: s.InviteCode}
}
