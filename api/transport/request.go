package transport

type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateAvatarRequest only carries the fields that changed.
type UpdateAvatarRequest struct {
	AvatarID *string `json:"avatarId,omitempty"`
	Pseudo   *string `json:"pseudo,omitempty"`
}

func (r UpdateAvatarRequest) Empty() bool {
	return r.AvatarID == nil && r.Pseudo == nil
}

type GroupRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type InvitationRequest struct {
	Email string `json:"email"`
}

type WishRequest struct {
	GiftName    string   `json:"giftName"`
	Description *string  `json:"description,omitempty"`
	URL         *string  `json:"url,omitempty"`
	ImageURL    *string  `json:"imageUrl,omitempty"`
	Price       *float64 `json:"price,omitempty"`
}
