package auth

import (
	"context"
	"fmt"

	"tiergate/entity"
	"tiergate/impl/core"
	"tiergate/internal/password"
)

type Database interface {
	UserByUsername(ctx context.Context, username string) (*entity.User, error)
}

type Auth struct {
	db Database
}

func New(db Database) *Auth {
	return &Auth{db: db}
}

// UserByCredentials returns core.ErrInvalidCredentials for an unknown user,
// a wrong password, or a stored hash this service did not write.
func (a Auth) UserByCredentials(ctx context.Context, username, pw string) (*entity.User, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	user, err := a.db.UserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, core.ErrInvalidCredentials
	}
	ok, err := password.Verify(pw, user.PasswordHash)
	if err != nil || !ok {
		return nil, core.ErrInvalidCredentials
	}
	return user, nil
}
