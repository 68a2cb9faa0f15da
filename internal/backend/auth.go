package backend

import (
	"context"
	"net/http"
	"net/url"
)

// Login authenticates credentials against the auth service.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(withoutCredentials(ctx), http.MethodPost, "/auth/login", "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account. It does not authenticate the caller.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(withoutCredentials(ctx), http.MethodPost, "/auth/register", "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChangePassword changes the password of the current principal.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	return c.do(ctx, http.MethodPost, "/auth/change-password", "/auth/change-password", req, nil)
}

// ListUsers returns every account.
func (c *Client) ListUsers(ctx context.Context) ([]UserAccount, error) {
	var users []UserAccount
	if err := c.do(ctx, http.MethodGet, "/auth/users", "/auth/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/auth/users/{id}", "/auth/users/"+url.PathEscape(id), nil, nil)
}

// UpdateUserRoles replaces the role set of an account.
func (c *Client) UpdateUserRoles(ctx context.Context, req UserRolesRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPut, "/auth/update-roles", "/auth/update-roles", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddUserRole grants one role to an account.
func (c *Client) AddUserRole(ctx context.Context, sisiID, role string) (*AuthResponse, error) {
	return c.changeRole(ctx, "/auth/add-role", sisiID, role)
}

// RemoveUserRole revokes one role from an account.
func (c *Client) RemoveUserRole(ctx context.Context, sisiID, role string) (*AuthResponse, error) {
	return c.changeRole(ctx, "/auth/remove-role", sisiID, role)
}

func (c *Client) changeRole(ctx context.Context, route, sisiID, role string) (*AuthResponse, error) {
	q := url.Values{}
	q.Set("sisiId", sisiID)
	q.Set("role", role)
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPut, route, route+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
