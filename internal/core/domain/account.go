package domain

import (
	"strings"
	"time"
)

// Role is the fixed set of principals an account can register as.
type Role string

const (
	RoleUser    Role = "User"
	RoleCompany Role = "Company"
	RoleDriver  Role = "Driver"
	RoleAdmin   Role = "Admin"
)

var roles = []Role{RoleUser, RoleCompany, RoleDriver, RoleAdmin}

// ParseRole matches s against the role enumeration ignoring case.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	for _, r := range roles {
		if strings.EqualFold(string(r), s) {
			return r, nil
		}
	}
	return "", ErrInvalidRole
}

func (r Role) String() string { return string(r) }

// RequiresApproval reports whether login is gated on IsApproved for this role.
// Admin accounts start unapproved but are never gated.
func (r Role) RequiresApproval() bool {
	return r == RoleCompany || r == RoleDriver
}

// Account is a registered principal. PasswordHash never leaves the process.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	IsApproved   bool
	CreatedAt    time.Time
}

// PublicAccount is the safe-to-expose projection of an Account.
type PublicAccount struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	IsApproved bool      `json:"isApproved"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Public strips credential material from the account.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:         a.ID,
		Email:      a.Email,
		Role:       a.Role,
		IsApproved: a.IsApproved,
		CreatedAt:  a.CreatedAt,
	}
}

// Principal is the authenticated identity carried by a validated token.
type Principal struct {
	AccountID string `json:"id"`
	Role      Role   `json:"role"`
}
