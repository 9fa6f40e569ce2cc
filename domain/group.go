package domain

import "time"

// Group is a gift exchange group owned by an admin.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	AdminID   string    `json:"adminId"`
	CreatedAt time.Time `json:"createdAt"`
}

// GroupMember is a user as listed inside a group.
type GroupMember struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	AvatarID  *string   `json:"avatarId,omitempty"`
	Pseudo    *string   `json:"pseudo,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (m *GroupMember) DisplayName() string {
	if m == nil {
		return ""
	}
	return DisplayName(Identity{Email: m.Email, Pseudo: deref(m.Pseudo)})
}

// Invitation is a pending or accepted invitation into a group.
type Invitation struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	GroupID        string    `json:"groupId"`
	Token          string    `json:"token"`
	Accepted       bool      `json:"accepted"`
	CreatedAt      time.Time `json:"createdAt"`
	InvitationLink string    `json:"invitationLink,omitempty"`
}

// DefaultGroupType is the only group type the API accepts.
const DefaultGroupType = "noël"
