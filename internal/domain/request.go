package domain

import "time"

// RequestInfo carries the correlation data of a single inbound request.
// Verified is false when UserID/SessionID come from unauthenticated hints.
type RequestInfo struct {
	RequestID string
	UserID    string
	SessionID string
	Method    string
	Path      string
	StartedAt time.Time
	Verified  bool
}

// Identity is a caller identity that an authenticator has verified.
type Identity struct {
	UserID    string
	SessionID string
	Email     string
	Role      Role
}

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleSales   Role = "sales"
	RoleViewer  Role = "viewer"
)
