package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the read-only view of a decoded token used by guards and
// dashboards.
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
	Email() string
	HasRole(role string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims. The backend
// issues sub, iat, exp, role and email.
type JWTClaims struct {
	jwt.RegisteredClaims
	UserRole  string `json:"role,omitempty"`
	UserEmail string `json:"email,omitempty"`

	// Raw holds every payload field, including the ones above.
	Raw map[string]any `json:"-"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID, the backend stores it in sub
func (c *JWTClaims) UserID() string {
	return c.Subject()
}

// Role returns the role claim lower-cased
func (c *JWTClaims) Role() string {
	return NormalizeRole(c.UserRole)
}

// Email returns the email claim
func (c *JWTClaims) Email() string {
	return c.UserEmail
}

// HasRole compares roles case-insensitively
func (c *JWTClaims) HasRole(role string) bool {
	return c.Role() != "" && c.Role() == NormalizeRole(role)
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

// IsExpired reports whether exp is set and not after now. Tokens without
// exp never expire client side.
func (c *JWTClaims) IsExpired(now time.Time) bool {
	exp := c.Expires()
	if exp.IsZero() {
		return false
	}
	return !now.Before(exp)
}

// Claim returns a raw payload field.
func (c *JWTClaims) Claim(name string) (any, bool) {
	if c.Raw == nil {
		return nil, false
	}
	v, ok := c.Raw[name]
	return v, ok
}

// NormalizeRole lower-cases a role name. Roles are compared this way
// everywhere, the backend is not consistent about casing.
func NormalizeRole(role string) string {
	return strings.ToLower(role)
}
