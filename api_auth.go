package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Login exchanges credentials for a token. The session is not stored here,
// see SessionManager.Login.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	out := &AuthResponse{}
	if err := c.Post(ctx, "/api/v1/auth/login", creds, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Register creates an account. The backend answers like Login.
func (c *Client) Register(ctx context.Context, reg Registration) (*AuthResponse, error) {
	reg.Email = strings.ToLower(strings.TrimSpace(reg.Email))
	out := &AuthResponse{}
	if err := c.Post(ctx, "/api/v1/auth/register", reg, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRoles returns the role catalog. The endpoint answers either a bare
// array or an object with an items field.
func (c *Client) ListRoles(ctx context.Context) ([]Role, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, "/api/v1/roles", nil, &raw); err != nil {
		return nil, err
	}
	return decodeRoles(raw)
}

func decodeRoles(raw json.RawMessage) ([]Role, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []Role{}, nil
	}

	var roles []Role
	if err := json.Unmarshal(raw, &roles); err == nil {
		return roles, nil
	}

	var wrapped struct {
		Items []Role `json:"items"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("unexpected roles payload: %w", err)
	}
	if wrapped.Items == nil {
		return []Role{}, nil
	}
	return wrapped.Items, nil
}

// ImpersonateChild asks the backend for a token scoped to a child account
// of the current parent session.
func (c *Client) ImpersonateChild(ctx context.Context, childID ID) (*AuthResponse, error) {
	if childID == "" {
		return nil, fmt.Errorf("child id is required")
	}
	out := &AuthResponse{}
	path := "/api/v1/parent/children/" + url.PathEscape(childID.String()) + "/impersonate"
	if err := c.Post(ctx, path, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}
