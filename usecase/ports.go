package usecase

import "context"

// GroupSync is the group state the session drives after login, restore and
// profile changes.
type GroupSync interface {
	FetchAdminGroups(ctx context.Context) error
	FetchMyGroups(ctx context.Context) error
	ApplyMemberProfile(userID string, avatarID, pseudo *string)
	Reset()
}

// Resetter is implemented by session-dependent state cleared on logout.
type Resetter interface {
	Reset()
}

// TokenUpdater adopts a credential minted by a later API call.
type TokenUpdater interface {
	UpdateToken(ctx context.Context, token string) error
}
