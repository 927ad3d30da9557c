package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents the structured claims carried by an access token.
// The payload is a snapshot captured at issuance time; security-relevant
// gating re-reads the live account instead of trusting these values.
type AuthClaims interface {
	Subject() string
	UserID() int64
	Email() string
	Role() UserRole
	Confirmed() bool
	HasRole(role UserRole) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID            int64    `json:"uid,omitempty"`
	UserEmail      string   `json:"email,omitempty"`
	UserRole       UserRole `json:"role,omitempty"`
	EmailConfirmed bool     `json:"confirmed,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the account id
func (c *JWTClaims) UserID() int64 {
	if c.UID != 0 {
		return c.UID
	}
	id, _ := strconv.ParseInt(c.RegisteredClaims.Subject, 10, 64)
	return id
}

// Email returns the email snapshot
func (c *JWTClaims) Email() string {
	return c.UserEmail
}

// Role returns the role snapshot
func (c *JWTClaims) Role() UserRole {
	return c.UserRole
}

// Confirmed reports the confirmation snapshot
func (c *JWTClaims) Confirmed() bool {
	return c.EmailConfirmed
}

// HasRole checks if the snapshot role matches
func (c *JWTClaims) HasRole(role UserRole) bool {
	return c.UserRole == role
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ensureTokenID assigns a unique jti when the claims carry none.
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = newTokenID()
	}
}
