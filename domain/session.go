package domain

import "time"

// Persisted record slot keys.
const (
	SlotAuthToken = "auth_token"
	SlotUser      = "user"
)

// Claims are the read-only claims carried by a bearer token.
type Claims struct {
	Subject   string    `json:"sub"`
	IsAdmin   bool      `json:"isAdmin"`
	GroupIDs  []string  `json:"groupIds"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

func (c *Claims) Expired(reference time.Time) bool {
	if c == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !c.ExpiresAt.After(reference)
}

// Phase is the session state machine position.
type Phase string

const (
	PhaseAnonymous      Phase = "anonymous"
	PhaseAuthenticating Phase = "authenticating"
	PhaseAuthenticated  Phase = "authenticated"
)

// SessionState is a point-in-time copy of the live session.
type SessionState struct {
	Phase     Phase
	Token     string
	User      *User
	IsLoading bool
	LastError string
}
