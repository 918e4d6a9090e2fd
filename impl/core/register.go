package core

import (
	"context"
	"errors"
	"log/slog"
	"unicode/utf8"

	"tiergate/entity"
	"tiergate/internal/password"
	"tiergate/lib/sl"
)

const (
	minUsernameLength = 3
	minPasswordLength = 6
)

type RegisterRequest struct {
	Username   string
	Password   string
	Answer     string
	Puzzle     entity.Puzzle
	InviteCode string
}

// Registration is the outcome of a successful sign-up. InviteLinkIssued is
// false when the account exists but the invite-link procedure failed; the
// account is kept and the operator is told.
type Registration struct {
	User             *entity.User
	InviteLinkIssued bool
}

func hashPassword(pw string) (string, error) {
	return password.Hash(pw)
}

// Register creates an account. Local checks run first and make no remote
// call. The address and username checks are read-then-insert; stores with
// unique constraints report a losing concurrent insert as the same conflict.
func (c *Core) Register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	log := c.log.With(
		slog.String("username", req.Username),
		slog.String("invite_code", req.InviteCode),
	)

	if !req.Puzzle.Check(req.Answer) {
		return nil, ErrPuzzleMismatch
	}
	if utf8.RuneCountInString(req.Username) < minUsernameLength {
		return nil, ErrUsernameTooShort
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if c.ip == nil {
		return nil, ErrRegistrationFailed
	}
	ip, err := c.ip.ResolveIP(ctx)
	if err != nil {
		log.Error("resolve ip", sl.Err(err))
		return nil, ErrRegistrationFailed.withCause(err)
	}
	log = log.With(slog.String("ip", ip))

	existing, err := c.store.UserByIP(ctx, ip)
	if err != nil {
		log.Error("check ip", sl.Err(err))
		return nil, ErrRegistrationFailed.withCause(err)
	}
	if existing != nil {
		log.Info("ip already has an account")
		return nil, ErrDuplicateIP
	}

	taken, err := c.store.UserByUsername(ctx, req.Username)
	if err != nil {
		log.Error("check username", sl.Err(err))
		return nil, ErrRegistrationFailed.withCause(err)
	}
	if taken != nil {
		log.Info("username already exists")
		return nil, ErrDuplicateUsername
	}

	inviterID := c.resolveInviter(ctx, log, req.InviteCode)

	hash, err := c.hash(req.Password)
	if err != nil {
		log.Error("hash password", sl.Err(err))
		return nil, ErrRegistrationFailed.withCause(err)
	}

	user, err := c.store.InsertUser(ctx, &entity.NewUser{
		Username:     req.Username,
		PasswordHash: hash,
		IPAddress:    ip,
		InvitedBy:    inviterID,
	})
	if err != nil {
		var conflict *entity.ConflictError
		if errors.As(err, &conflict) {
			log.Warn("insert lost uniqueness race", slog.String("field", conflict.Field))
			if conflict.Field == entity.FieldIPAddress {
				return nil, ErrDuplicateIP
			}
			return nil, ErrDuplicateUsername
		}
		log.Error("insert user", sl.Err(err))
		return nil, serviceError(backendMessage(err), err)
	}
	log = log.With(slog.String("user_id", user.ID))

	result := &Registration{User: user, InviteLinkIssued: true}
	if err = c.store.CreateUserInviteLink(ctx, user.ID); err != nil {
		result.InviteLinkIssued = false
		log.Error("create invite link; account has no invite link", sl.Topic(entity.TopicError), sl.Err(err))
	}

	log.With(slog.Bool("invited", inviterID != nil)).
		Info("user registered", sl.Topic(entity.TopicRegistration))
	return result, nil
}

// resolveInviter returns the owner of an invite code; an unknown code or a
// failed lookup means no inviter.
func (c *Core) resolveInviter(ctx context.Context, log *slog.Logger, code string) *string {
	if code == "" {
		return nil
	}
	link, err := c.store.InviteLinkByCode(ctx, code)
	if err != nil {
		log.Warn("invite code lookup", sl.Err(err))
		return nil
	}
	if link == nil {
		log.Debug("invite code not found")
		return nil
	}
	inviter := link.UserID
	return &inviter
}

// backendMessage extracts the store's own message from an insert failure,
// for stores whose errors carry one meant for end users.
func backendMessage(err error) string {
	var pub interface{ PublicMessage() string }
	if errors.As(err, &pub) {
		return pub.PublicMessage()
	}
	return ""
}
