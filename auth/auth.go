// Package auth identifies callers of the Sakura API.
//
// Tokens are HS256 JWTs carrying the username, the role and the account
// creation time. The scheduler only consumes those three facts: who the caller
// is, how old the account is, and whether the role is elevated.
package auth

import (
	"strings"
	"time"

	"github.com/Somnusochi/auto-novel/errors"
)

// Role is a user's authorization tier. Tiers are ordered.
type Role string

const (
	RoleNormal     Role = "normal"
	RoleTrusted    Role = "trusted"
	RoleMaintainer Role = "maintainer"
	RoleAdmin      Role = "admin"
)

var roleRank = map[Role]int{
	RoleNormal:     0,
	RoleTrusted:    1,
	RoleMaintainer: 2,
	RoleAdmin:      3,
}

// ParseRole accepts any case; unknown names are rejected.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roleRank[role]; !ok {
		return "", errors.NewInvalidRequestError("unknown role %q", s)
	}
	return role, nil
}

// AtLeast reports whether r ranks at or above other.
// Unknown roles rank below everything.
func (r Role) AtLeast(other Role) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	return rank >= roleRank[other]
}

// User is an authenticated caller
type User struct {
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"` // account creation, not token issue time
}

// IsElevated reports maintainer-or-above privilege
func (u *User) IsElevated() bool {
	return u != nil && u.Role.AtLeast(RoleMaintainer)
}

// AccountAge returns how long the account has existed at now
func (u *User) AccountAge(now time.Time) time.Duration {
	return now.Sub(u.CreatedAt)
}
