package backend

import (
	"bytes"
	"encoding/json"
	"time"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	SisiID   string `json:"sisiId"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	SisiID   string   `json:"sisiId"`
	Password string   `json:"password"`
	Roles    []string `json:"roles,omitempty"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	ID     string   `json:"id"`
	SisiID string   `json:"sisiId"`
	Token  string   `json:"token"`
	Roles  []string `json:"roles"`
}

// ChangePasswordRequest is the body of POST /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UserRolesRequest is the body of PUT /auth/update-roles.
type UserRolesRequest struct {
	SisiID string   `json:"sisiId"`
	Roles  []string `json:"roles"`
}

// UserAccount is one row of GET /auth/users.
type UserAccount struct {
	ID        string    `json:"id"`
	SisiID    string    `json:"sisiId"`
	Roles     []string  `json:"roles"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// Permission is a capability record owned by the authorization service.
type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   Timestamp `json:"createdAt"`
	UpdatedAt   Timestamp `json:"updatedAt"`
}

// PermissionRequest creates or updates a permission.
type PermissionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    *bool  `json:"isActive,omitempty"`
}

// RolePermission links a role to a permission.
type RolePermission struct {
	ID         string      `json:"id"`
	Role       string      `json:"role"`
	Permission *Permission `json:"permission"`
	IsActive   bool        `json:"isActive"`
	CreatedAt  Timestamp   `json:"createdAt"`
	UpdatedAt  Timestamp   `json:"updatedAt"`
}

// RolePermissionRequest creates or updates a role-permission link.
type RolePermissionRequest struct {
	Role         string `json:"role"`
	PermissionID string `json:"permissionId"`
	IsActive     *bool  `json:"isActive,omitempty"`
}

// UserDetail is the personal record kept by the user-detail service.
type UserDetail struct {
	ID             string `json:"id,omitempty"`
	SisiID         string `json:"sisiId"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	RegisterNumber string `json:"registerNumber"`
	PhoneNumber    string `json:"phoneNumber"`
	University     string `json:"university,omitempty"`
	CourseYear     int    `json:"courseYear,omitempty"`
}

// UploadResult is returned by POST /files/upload.
type UploadResult struct {
	URL string `json:"url"`
}

// Timestamp decodes the services' timestamps, which come with or without a
// zone. Unparseable values decode to the zero time.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	t.Time = time.Time{}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}
