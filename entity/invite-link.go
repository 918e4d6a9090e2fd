package entity

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// InviteLink ties a user to the opaque code shared in invite URLs.
// The code is minted by the backend; its format is not interpreted here.
type InviteLink struct {
	ID         string    `json:"id" bson:"_id" validate:"required"`
	UserID     string    `json:"user_id" bson:"user_id" validate:"required"`
	InviteCode string    `json:"invite_code" bson:"invite_code" validate:"required"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// InviteParam is the query-string parameter carrying an invite code.
const InviteParam = "invite"

// InviteURL renders the public link for an invite code: <base>/?invite=<code>.
func InviteURL(baseURL, code string) string {
	if code == "" {
		return ""
	}
	return fmt.Sprintf("%s/?%s=%s", strings.TrimRight(baseURL, "/"), InviteParam, url.QueryEscape(code))
}
