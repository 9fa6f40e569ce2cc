package transport

import (
	"encoding/json"
	"time"

	"github.com/fastygo/wishgift/domain"
)

// AuthResponse is returned by login and register.
type AuthResponse struct {
	UserID   string  `json:"userId"`
	IsAdmin  bool    `json:"isAdmin"`
	Token    string  `json:"token"`
	AvatarID *string `json:"avatarId,omitempty"`
	Pseudo   *string `json:"pseudo,omitempty"`
}

// AvatarResponse carries the canonical display fields after an update.
type AvatarResponse struct {
	ID       string  `json:"id,omitempty"`
	Email    string  `json:"email,omitempty"`
	AvatarID *string `json:"avatarId"`
	Pseudo   *string `json:"pseudo"`
}

// GroupResponse may carry a freshly minted token when group ownership changed.
type GroupResponse struct {
	domain.Group
	JWTToken *string `json:"jwtToken,omitempty"`
}

// InvitationResponse may carry a token for the invited user on acceptance.
type InvitationResponse struct {
	domain.Invitation
	JWTToken *string `json:"jwtToken,omitempty"`
}

// ErrorResponse is the uniform error body of the API.
type ErrorResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewError returns an error body stamped with the current time.
func NewError(message string) ErrorResponse {
	return ErrorResponse{Message: message, Timestamp: time.Now().UTC()}
}

// String returns the JSON representation (best-effort) for logging purposes.
func (e ErrorResponse) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}
