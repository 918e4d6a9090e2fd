package entity

import (
	"net/http"
	"strings"
	"time"

	"tiergate/lib/validate"
)

// User is a row of the users table. CurrentTier and TotalInvites are
// maintained by the backend; this service only reads them.
type User struct {
	ID           string    `json:"id" bson:"_id" validate:"required"`
	Username     string    `json:"username" bson:"username" validate:"required"`
	PasswordHash string    `json:"password_hash,omitempty" bson:"password_hash"`
	IPAddress    string    `json:"ip_address,omitempty" bson:"ip_address"`
	InvitedBy    *string   `json:"invited_by" bson:"invited_by"`
	CurrentTier  int       `json:"current_tier" bson:"current_tier" validate:"gte=0"`
	TotalInvites int       `json:"total_invites" bson:"total_invites" validate:"gte=0"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// ShortID is the identifier prefix shown in the sidebar.
func (u *User) ShortID() string {
	if len(u.ID) <= 8 {
		return u.ID
	}
	return u.ID[:8]
}

// Public strips the fields that never leave the server.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	p := *u
	p.PasswordHash = ""
	p.IPAddress = ""
	return &p
}

// NewUser is the insert payload for the users table.
type NewUser struct {
	Username     string  `json:"username" bson:"username" validate:"required,min=3"`
	PasswordHash string  `json:"password_hash" bson:"password_hash" validate:"required"`
	IPAddress    string  `json:"ip_address" bson:"ip_address" validate:"required,ip"`
	InvitedBy    *string `json:"invited_by" bson:"invited_by"`
}

// Credentials is the registration and sign-in request body. Field rules are
// checked by the service in a fixed order, so Bind only bounds the sizes.
type Credentials struct {
	Username     string `json:"username" validate:"max=64"`
	Password     string `json:"password" validate:"max=256"`
	PuzzleAnswer string `json:"puzzle_answer" validate:"max=8"`
	InviteCode   string `json:"invite_code" validate:"max=128"`
}

func (c *Credentials) Bind(_ *http.Request) error {
	c.Username = strings.TrimSpace(c.Username)
	c.InviteCode = strings.TrimSpace(c.InviteCode)
	return validate.Struct(c)
}
