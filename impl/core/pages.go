package core

import (
	"context"
	"log/slog"

	"tiergate/entity"
	"tiergate/lib/sl"
)

// Page is everything one signed-in view needs: the shell (user and tier
// list for the sidebar) plus the data of the routed view.
type Page struct {
	User     *entity.User
	Tiers    []entity.TierRequirement
	View     string
	Route    entity.Route
	Warnings []string

	Progress   *entity.Progress
	InviteLink string
	Access     *entity.TierAccess
	Preview    []entity.PreviewItem
}

// Page renders the view selected by the state. Counters come from a fresh
// read of the user row; nothing is computed back into the store.
func (c *Core) Page(ctx context.Context, state entity.AppState) (*Page, error) {
	user, err := c.currentUser(ctx, state.UserID)
	if err != nil {
		return nil, err
	}

	page := &Page{
		User:  user,
		View:  state.CurrentView(),
		Route: entity.ParseView(state.CurrentView()),
	}

	tiers, err := c.Tiers(ctx)
	if err != nil {
		page.Warnings = append(page.Warnings, Message(err))
	}
	page.Tiers = tiers

	switch page.Route.Kind {
	case entity.RoutePreview:
		page.Preview = c.PreviewItems()
	case entity.RouteTier:
		access := entity.NewTierAccess(user, page.Route.Tier, tiers)
		page.Access = &access
	default:
		progress := entity.NewProgress(user, tiers)
		page.Progress = &progress
		page.InviteLink = c.inviteLink(ctx, user.ID)
	}
	return page, nil
}

// Dashboard is the dashboard view alone, for the JSON API.
func (c *Core) Dashboard(ctx context.Context, userID string) (*Page, error) {
	return c.Page(ctx, entity.AppState{UserID: userID, View: entity.ViewDashboard})
}

// TierView is one tier's page alone, for callers that address tiers by number.
func (c *Core) TierView(ctx context.Context, userID string, tier int) (*Page, error) {
	return c.Page(ctx, entity.AppState{UserID: userID, View: entity.TierView(tier)})
}

func (c *Core) PreviewItems() []entity.PreviewItem {
	return entity.PreviewItems(c.conf.MediaBaseURL, c.conf.PreviewFiles)
}

func (c *Core) currentUser(ctx context.Context, userID string) (*entity.User, error) {
	if userID == "" {
		return nil, ErrNotSignedIn
	}
	user, err := c.store.UserByID(ctx, userID)
	if err != nil {
		c.log.With(slog.String("user_id", userID)).Error("load user", sl.Err(err))
		return nil, &Error{Kind: KindService, Message: "Failed to load your account. Please try again.", Err: err}
	}
	if user == nil {
		return nil, ErrNotSignedIn
	}
	return user, nil
}

// inviteLink degrades to an empty link when the lookup fails or the user has
// no link yet.
func (c *Core) inviteLink(ctx context.Context, userID string) string {
	link, err := c.store.InviteLinkByUser(ctx, userID)
	if err != nil {
		c.log.With(slog.String("user_id", userID)).Warn("fetch invite link", sl.Err(err))
		return ""
	}
	if link == nil {
		return ""
	}
	return entity.InviteURL(c.conf.PublicURL, link.InviteCode)
}
