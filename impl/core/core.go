package core

import (
	"context"
	"errors"
	"log/slog"

	"tiergate/entity"
	"tiergate/lib/random"
	"tiergate/lib/sl"
)

// Store is the remote table store: users, invite links and tier requirements.
// Lookups return nil, nil when nothing matches.
type Store interface {
	UserByIP(ctx context.Context, ip string) (*entity.User, error)
	UserByUsername(ctx context.Context, username string) (*entity.User, error)
	UserByID(ctx context.Context, id string) (*entity.User, error)
	InviteLinkByCode(ctx context.Context, code string) (*entity.InviteLink, error)
	InviteLinkByUser(ctx context.Context, userID string) (*entity.InviteLink, error)
	InsertUser(ctx context.Context, nu *entity.NewUser) (*entity.User, error)
	CreateUserInviteLink(ctx context.Context, userID string) error
	TierRequirements(ctx context.Context) ([]entity.TierRequirement, error)
}

type IPResolver interface {
	ResolveIP(ctx context.Context) (string, error)
}

type AuthService interface {
	UserByCredentials(ctx context.Context, username, password string) (*entity.User, error)
}

type Config struct {
	PublicURL    string
	TelegramURL  string
	MediaBaseURL string
	PreviewFiles []string
}

type Core struct {
	store  Store
	ip     IPResolver
	auth   AuthService
	conf   Config
	hash   func(password string) (string, error)
	puzzle func(n int) int
	log    *slog.Logger
}

func New(store Store, ip IPResolver, conf Config, log *slog.Logger) *Core {
	if store == nil {
		panic("store is nil")
	}
	return &Core{
		store:  store,
		ip:     ip,
		conf:   conf,
		hash:   hashPassword,
		puzzle: random.Num,
		log:    log.With(sl.Module("core")),
	}
}

func (c *Core) SetAuthService(auth AuthService) {
	c.auth = auth
}

func (c *Core) Config() Config {
	return c.conf
}

// NewPuzzle issues the addition challenge for a registration form.
func (c *Core) NewPuzzle() entity.Puzzle {
	return entity.NewPuzzle(c.puzzle)
}

// Tiers returns the tier table ordered by tier number.
func (c *Core) Tiers(ctx context.Context) ([]entity.TierRequirement, error) {
	tiers, err := c.store.TierRequirements(ctx)
	if err != nil {
		c.log.Error("fetch tier requirements", sl.Err(err))
		return nil, ErrTiersUnavailable.withCause(err)
	}
	return tiers, nil
}

// SignIn checks a returning user's credentials.
func (c *Core) SignIn(ctx context.Context, username, password string) (*entity.User, error) {
	if c.auth == nil {
		return nil, ErrInvalidCredentials
	}
	user, err := c.auth.UserByCredentials(ctx, username, password)
	if errors.Is(err, ErrInvalidCredentials) {
		c.log.With(slog.String("username", username)).Info("sign in rejected")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		c.log.With(slog.String("username", username)).Error("sign in", sl.Err(err))
		return nil, ErrSignInFailed.withCause(err)
	}
	return user, nil
}
