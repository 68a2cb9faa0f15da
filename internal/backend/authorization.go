package backend

import (
	"context"
	"net/http"
	"net/url"
)

// ListPermissions returns the full permission catalog.
func (c *Client) ListPermissions(ctx context.Context) ([]Permission, error) {
	var perms []Permission
	if err := c.do(ctx, http.MethodGet, "/authorization/permissions", "/authorization/permissions", nil, &perms); err != nil {
		return nil, err
	}
	return perms, nil
}

// GetPermission fetches one permission.
func (c *Client) GetPermission(ctx context.Context, id string) (*Permission, error) {
	var perm Permission
	if err := c.do(ctx, http.MethodGet, "/authorization/permissions/{id}", "/authorization/permissions/"+url.PathEscape(id), nil, &perm); err != nil {
		return nil, err
	}
	return &perm, nil
}

// CreatePermission adds a permission to the catalog.
func (c *Client) CreatePermission(ctx context.Context, req PermissionRequest) (*Permission, error) {
	var perm Permission
	if err := c.do(ctx, http.MethodPost, "/authorization/permissions", "/authorization/permissions", req, &perm); err != nil {
		return nil, err
	}
	return &perm, nil
}

// UpdatePermission edits a permission.
func (c *Client) UpdatePermission(ctx context.Context, id string, req PermissionRequest) (*Permission, error) {
	var perm Permission
	if err := c.do(ctx, http.MethodPut, "/authorization/permissions/{id}", "/authorization/permissions/"+url.PathEscape(id), req, &perm); err != nil {
		return nil, err
	}
	return &perm, nil
}

// DeletePermission removes a permission.
func (c *Client) DeletePermission(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/authorization/permissions/{id}", "/authorization/permissions/"+url.PathEscape(id), nil, nil)
}

// AssignPermissionToRole links a permission to a role.
func (c *Client) AssignPermissionToRole(ctx context.Context, req RolePermissionRequest) (*RolePermission, error) {
	var link RolePermission
	if err := c.do(ctx, http.MethodPost, "/authorization/role-permissions", "/authorization/role-permissions", req, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// PermissionsByRole returns every link of role, active or not.
func (c *Client) PermissionsByRole(ctx context.Context, role string) ([]RolePermission, error) {
	var links []RolePermission
	path := "/authorization/role-permissions/role/" + url.PathEscape(role)
	if err := c.do(ctx, http.MethodGet, "/authorization/role-permissions/role/{role}", path, nil, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// ActivePermissionsByRole returns the active links of role.
func (c *Client) ActivePermissionsByRole(ctx context.Context, role string) ([]RolePermission, error) {
	var links []RolePermission
	path := "/authorization/role-permissions/role/" + url.PathEscape(role) + "/active"
	if err := c.do(ctx, http.MethodGet, "/authorization/role-permissions/role/{role}/active", path, nil, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// UpdateRolePermission edits a role-permission link.
func (c *Client) UpdateRolePermission(ctx context.Context, id string, req RolePermissionRequest) (*RolePermission, error) {
	var link RolePermission
	if err := c.do(ctx, http.MethodPut, "/authorization/role-permissions/{id}", "/authorization/role-permissions/"+url.PathEscape(id), req, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// DeleteRolePermission removes a role-permission link.
func (c *Client) DeleteRolePermission(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/authorization/role-permissions/{id}", "/authorization/role-permissions/"+url.PathEscape(id), nil, nil)
}
