// Package session owns the signed-in user's session on a client device:
// hydrating it from key-value storage at startup, replacing it on login,
// and discarding it on logout or once it has expired.
package session

import (
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff:
		return true
	default:
		return false
	}
}

// Session is the persisted record. TokenExpiresAt is in epoch milliseconds.
type Session struct {
	Token          string `json:"token"`
	TokenExpiresAt int64  `json:"tokenExpiresAt"`
	Role           Role   `json:"role"`
	TenantID       int64  `json:"tenantId,omitempty"`
	BranchID       int64  `json:"branchId,omitempty"`
}

func (s Session) ExpiresAt() time.Time {
	return time.UnixMilli(s.TokenExpiresAt)
}

func (s Session) Expired(now time.Time) bool {
	if s.Token == "" {
		return true
	}
	return !now.Before(s.ExpiresAt())
}
