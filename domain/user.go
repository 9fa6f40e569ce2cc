package domain

import "strings"

// Role is an authorization role derived from token claims.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// RolesFor maps the admin claim to a role set.
func RolesFor(isAdmin bool) []Role {
	if isAdmin {
		return []Role{RoleAdmin}
	}
	return []Role{RoleUser}
}

// User is the authenticated identity snapshot kept in memory and persisted
// under the "user" slot.
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Roles    []Role   `json:"roles"`
	GroupIDs []string `json:"groupIds"`
	AvatarID *string  `json:"avatarId,omitempty"`
	Pseudo   *string  `json:"pseudo,omitempty"`
}

func (u *User) IsAdmin() bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so snapshots handed to callers never alias state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Roles = append([]Role(nil), u.Roles...)
	out.GroupIDs = append([]string{}, u.GroupIDs...)
	out.AvatarID = cloneString(u.AvatarID)
	out.Pseudo = cloneString(u.Pseudo)
	return &out
}

func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	return DisplayName(Identity{Email: u.Email, Pseudo: deref(u.Pseudo)})
}

// Identity is the minimal user-shaped record a display name is derived from.
type Identity struct {
	Email  string
	Pseudo string
}

// DisplayName picks the pseudo when set, then the local part of the email,
// then the email itself.
func DisplayName(id Identity) string {
	if p := strings.TrimSpace(id.Pseudo); p != "" {
		return id.Pseudo
	}
	if at := strings.Index(id.Email, "@"); at > 0 {
		return id.Email[:at]
	}
	return id.Email
}

// StringPtr is a convenience for optional string fields.
func StringPtr(s string) *string {
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
