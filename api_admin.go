package auth

import (
	"context"
	"net/url"
	"strconv"

	goerrors "github.com/goliatone/go-errors"
)

// ErrEmptyUpdate no field was given to change
var ErrEmptyUpdate = goerrors.New("no fields to update", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode("EMPTY_UPDATE")

// AdminStats returns the admin dashboard counters
func (c *Client) AdminStats(ctx context.Context) (*AdminStats, error) {
	out := &AdminStats{}
	if err := c.Get(ctx, "/api/v1/admin/dashboard/stats", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminRecentActivity returns the latest registrations and enrollments.
// A limit of zero lets the backend pick.
func (c *Client) AdminRecentActivity(ctx context.Context, limit int) (*ActivityFeed, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	out := &ActivityFeed{}
	if err := c.Get(ctx, "/api/v1/admin/dashboard/recent-activity", q, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListUsers pages through accounts
func (c *Client) ListUsers(ctx context.Context, filter UserFilter) (*UserPage, error) {
	q := url.Values{}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.Role != "" {
		q.Set("role", NormalizeRole(filter.Role))
	}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}

	out := &UserPage{}
	if err := c.Get(ctx, "/api/v1/admin/users", q, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UserStats returns account counters
func (c *Client) UserStats(ctx context.Context) (*UserStats, error) {
	out := &UserStats{}
	if err := c.Get(ctx, "/api/v1/admin/users/stats", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUser returns one account
func (c *Client) GetUser(ctx context.Context, id ID) (*User, error) {
	out := &User{}
	if err := c.Get(ctx, userPath(id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateUser changes the fields set in update
func (c *Client) UpdateUser(ctx context.Context, id ID, update UserUpdate) error {
	if update.IsEmpty() {
		return ErrEmptyUpdate
	}
	return c.Patch(ctx, userPath(id), update, nil)
}

// ToggleUserActive flips the active flag of an account
func (c *Client) ToggleUserActive(ctx context.Context, id ID) (*UserToggle, error) {
	out := &UserToggle{}
	if err := c.Patch(ctx, userPath(id)+"/toggle-active", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func userPath(id ID) string {
	return "/api/v1/admin/users/" + url.PathEscape(id.String())
}
