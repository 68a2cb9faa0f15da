package shared

import "strings"

// Principal is the authenticated identity held by a session.
type Principal struct {
	ID     string   `json:"id"`
	SisiID string   `json:"sisiId"`
	Token  string   `json:"token"`
	Roles  []string `json:"roles"`
}

// Valid reports whether the principal carries the fields required to act on
// behalf of a user.
func (p *Principal) Valid() bool {
	return p != nil && strings.TrimSpace(p.ID) != "" && strings.TrimSpace(p.Token) != ""
}

// HasRole reports whether role is a member of the principal's role set.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the principal holds at least one of roles.
func (p *Principal) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if p.HasRole(role) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (p *Principal) Clone() *Principal {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Roles = append([]string(nil), p.Roles...)
	return &cp
}

// NormalizeRoles trims role names and drops blanks and duplicates, keeping the
// first occurrence order.
func NormalizeRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}
