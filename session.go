package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Session is the live credential of a user agent: an opaque bearer token
// and the profile the backend returned with it.
type Session struct {
	Token string   `json:"token,omitempty"`
	User  *Profile `json:"user,omitempty"`
}

// Profile is the denormalized user record stored next to the token.
type Profile struct {
	UserID    ID             `json:"user_id,omitempty"`
	Email     string         `json:"email,omitempty"`
	Role      string         `json:"role,omitempty"`
	FullName  string         `json:"full_name,omitempty"`
	FirstName string         `json:"first_name,omitempty"`
	LastName  string         `json:"last_name,omitempty"`
	Name      string         `json:"name,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// IsZero reports whether there is no token
func (s Session) IsZero() bool {
	return s.Token == ""
}

// Authenticated reports whether a token is present. Validity is decided
// by the backend.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Claims decodes the token, nil when absent or malformed.
func (s Session) Claims() *JWTClaims {
	if s.Token == "" {
		return nil
	}
	return ParseClaims(s.Token)
}

// Role returns the lower-cased role claim of the token, or an empty string
// when there is no token, it can not be decoded, or it carries no role.
func (s Session) Role() string {
	claims := s.Claims()
	if claims == nil {
		return ""
	}
	return claims.Role()
}

// UserID returns the id of the signed in user: the stored profile first,
// then the sub claim.
func (s Session) UserID() ID {
	if s.User != nil && s.User.UserID != "" {
		return s.User.UserID
	}
	if claims := s.Claims(); claims != nil {
		return ID(claims.UserID())
	}
	return ""
}

// Validate enforces that a profile never exists without a token.
func (s Session) Validate() error {
	if s.User != nil && s.Token == "" {
		return ErrProfileWithoutToken
	}
	return nil
}

// DisplayName picks the friendliest name available
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.FullName != "" {
		return p.FullName
	}
	if full := strings.TrimSpace(p.FirstName + " " + p.LastName); full != "" {
		return full
	}
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}

func (s Session) String() string {
	token := "<none>"
	if s.Token != "" {
		token = fmt.Sprintf("<%d bytes>", len(s.Token))
	}
	user := "<none>"
	if s.User != nil {
		user = fmt.Sprintf("%s (%s)", s.User.Email, s.User.Role)
	}
	return fmt.Sprintf("token=%s user=%s", token, user)
}

// RoleFromSession reads the live session and returns its role, see
// Session.Role. A storage error reads as "no role"; callers that need the
// error use repo.Get.
func RoleFromSession(ctx context.Context, repo SessionRepository) string {
	session, err := repo.Get(ctx)
	if err != nil {
		return ""
	}
	return session.Role()
}

// ProfileFromClaims builds a minimal profile out of decoded claims, used
// when the backend only hands out a token.
func ProfileFromClaims(claims AuthClaims) *Profile {
	if claims == nil {
		return nil
	}
	return &Profile{
		UserID: ID(claims.UserID()),
		Email:  claims.Email(),
		Role:   claims.Role(),
	}
}

// ID is a backend identifier. The API sends integers, tokens carry them as
// strings; both decode into the same value.
type ID string

// UnmarshalJSON accepts a JSON number or string
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes integers as numbers and anything else as a string
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string {
	return string(id)
}

// Int returns the numeric value, 0 when the id is not an integer
func (id ID) Int() int64 {
	n, _ := strconv.ParseInt(string(id), 10, 64)
	return n
}
