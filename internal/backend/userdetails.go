package backend

import (
	"context"
	"net/http"
	"net/url"
)

// UserDetailBySisiID fetches the personal record of an account.
func (c *Client) UserDetailBySisiID(ctx context.Context, sisiID string) (*UserDetail, error) {
	var detail UserDetail
	path := "/user-details/sisi-user/" + url.PathEscape(sisiID)
	if err := c.do(ctx, http.MethodGet, "/user-details/sisi-user/{sisiId}", path, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CreateUserDetail registers a personal record. The user-detail service
// provisions the login account for it.
func (c *Client) CreateUserDetail(ctx context.Context, detail UserDetail) (*UserDetail, error) {
	var created UserDetail
	if err := c.do(ctx, http.MethodPost, "/user-details", "/user-details", detail, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateUserDetail edits a personal record.
func (c *Client) UpdateUserDetail(ctx context.Context, id string, detail UserDetail) (*UserDetail, error) {
	var updated UserDetail
	if err := c.do(ctx, http.MethodPut, "/user-details/{id}", "/user-details/"+url.PathEscape(id), detail, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}
