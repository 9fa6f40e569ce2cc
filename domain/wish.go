package domain

import "time"

// Wish is a gift listed by a group member. ReservedBy is hidden from the owner by the API.
type Wish struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	GroupID     string    `json:"groupId"`
	GiftName    string    `json:"giftName"`
	Description *string   `json:"description,omitempty"`
	URL         *string   `json:"url,omitempty"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	ReservedBy  *string   `json:"reservedBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (w *Wish) IsReserved() bool {
	return w != nil && w.ReservedBy != nil && *w.ReservedBy != ""
}
