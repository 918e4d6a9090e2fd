package tablestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tiergate/entity"
	"tiergate/lib/validate"
)

const (
	tableUsers            = "users"
	tableInviteLinks      = "invite_links"
	tableTierRequirements = "tier_requirements"

	rpcCreateUserInviteLink = "create_user_invite_link"
)

// Store is the table-backed implementation of the core store. Every row read
// is validated before it is handed out; "not found" is nil, nil.
type Store struct {
	c *Client
}

func NewStore(c *Client) *Store {
	return &Store{c: c}
}

func (s *Store) UserByIP(ctx context.Context, ip string) (*entity.User, error) {
	return s.findUser(ctx, entity.FieldIPAddress, ip)
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*entity.User, error) {
	return s.findUser(ctx, entity.FieldUsername, username)
}

func (s *Store) UserByID(ctx context.Context, id string) (*entity.User, error) {
	return s.findUser(ctx, "id", id)
}

func (s *Store) findUser(ctx context.Context, column, value string) (*entity.User, error) {
	var rows []entity.User
	q := Query{Eq: map[string]string{column: value}, Limit: 1}
	if err := s.c.Select(ctx, tableUsers, q, &rows); err != nil {
		return nil, fmt.Errorf("select user by %s: %w", column, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	user := &rows[0]
	if err := validate.Struct(user); err != nil {
		return nil, fmt.Errorf("invalid user row: %w", err)
	}
	return user, nil
}

func (s *Store) InviteLinkByCode(ctx context.Context, code string) (*entity.InviteLink, error) {
	return s.findInviteLink(ctx, "invite_code", code)
}

func (s *Store) InviteLinkByUser(ctx context.Context, userID string) (*entity.InviteLink, error) {
	return s.findInviteLink(ctx, "user_id", userID)
}

func (s *Store) findInviteLink(ctx context.Context, column, value string) (*entity.InviteLink, error) {
	var rows []entity.InviteLink
	q := Query{Eq: map[string]string{column: value}, Limit: 1}
	if err := s.c.Select(ctx, tableInviteLinks, q, &rows); err != nil {
		return nil, fmt.Errorf("select invite link by %s: %w", column, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	link := &rows[0]
	if err := validate.Struct(link); err != nil {
		return nil, fmt.Errorf("invalid invite link row: %w", err)
	}
	return link, nil
}

func (s *Store) InsertUser(ctx context.Context, nu *entity.NewUser) (*entity.User, error) {
	if err := validate.Struct(nu); err != nil {
		return nil, fmt.Errorf("invalid user: %w", err)
	}
	var user entity.User
	if err := s.c.Insert(ctx, tableUsers, nu, &user); err != nil {
		if IsUniqueViolation(err) {
			return nil, &entity.ConflictError{Field: conflictField(err), Err: err}
		}
		return nil, err
	}
	if err := validate.Struct(&user); err != nil {
		return nil, fmt.Errorf("invalid inserted user: %w", err)
	}
	return &user, nil
}

// conflictField picks the violated column out of the store's error details,
// e.g. `Key (username)=(alice) already exists.`
func conflictField(err error) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return ""
	}
	text := apiErr.Details + " " + apiErr.Message
	for _, field := range []string{entity.FieldIPAddress, entity.FieldUsername} {
		if strings.Contains(text, "("+field+")") || strings.Contains(text, "_"+field+"_") {
			return field
		}
	}
	return ""
}

func (s *Store) CreateUserInviteLink(ctx context.Context, userID string) error {
	args := map[string]string{"user_id": userID}
	if err := s.c.RPC(ctx, rpcCreateUserInviteLink, args, nil); err != nil {
		return fmt.Errorf("%s: %w", rpcCreateUserInviteLink, err)
	}
	return nil
}

func (s *Store) TierRequirements(ctx context.Context) ([]entity.TierRequirement, error) {
	var rows []entity.TierRequirement
	if err := s.c.Select(ctx, tableTierRequirements, Query{Order: "tier"}, &rows); err != nil {
		return nil, fmt.Errorf("select tier requirements: %w", err)
	}
	if err := validate.Slice(rows); err != nil {
		return nil, fmt.Errorf("invalid tier requirement: %w", err)
	}
	entity.SortTiers(rows)
	return rows, nil
}
