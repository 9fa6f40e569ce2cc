package gateway

import (
	"context"
	"net/url"

	"github.com/valyala/fasthttp"

	"github.com/fastygo/wishgift/api/transport"
	"github.com/fastygo/wishgift/domain"
)

func (c *Client) Login(ctx context.Context, email, password string) (*transport.AuthResponse, error) {
	var out transport.AuthResponse
	if err := c.do(ctx, fasthttp.MethodPost, "/api/auth/login", transport.AuthRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, email, password string) (*transport.AuthResponse, error) {
	var out transport.AuthResponse
	if err := c.do(ctx, fasthttp.MethodPost, "/api/auth/register", transport.AuthRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUserAvatar(ctx context.Context, req transport.UpdateAvatarRequest) (*transport.AvatarResponse, error) {
	var out transport.AvatarResponse
	if err := c.do(ctx, fasthttp.MethodPut, "/api/users/me/avatar", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetGroups lists the groups the caller administers.
func (c *Client) GetGroups(ctx context.Context) ([]domain.Group, error) {
	var out []domain.Group
	if err := c.do(ctx, fasthttp.MethodGet, "/api/groups", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUserGroups lists the groups the caller belongs to.
func (c *Client) GetUserGroups(ctx context.Context) ([]domain.Group, error) {
	var out []domain.Group
	if err := c.do(ctx, fasthttp.MethodGet, "/api/groups/me", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateGroup(ctx context.Context, req transport.GroupRequest) (*transport.GroupResponse, error) {
	var out transport.GroupResponse
	if err := c.do(ctx, fasthttp.MethodPost, "/api/groups", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateGroup(ctx context.Context, groupID string, req transport.GroupRequest) (*transport.GroupResponse, error) {
	var out transport.GroupResponse
	if err := c.do(ctx, fasthttp.MethodPut, groupPath(groupID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	return c.do(ctx, fasthttp.MethodDelete, groupPath(groupID), nil, nil)
}

func (c *Client) Invite(ctx context.Context, groupID, email string) (*transport.InvitationResponse, error) {
	var out transport.InvitationResponse
	if err := c.do(ctx, fasthttp.MethodPost, groupPath(groupID)+"/invite", transport.InvitationRequest{Email: email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetInvitations(ctx context.Context, groupID string) ([]domain.Invitation, error) {
	var out []domain.Invitation
	if err := c.do(ctx, fasthttp.MethodGet, groupPath(groupID)+"/invitations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AcceptInvitation redeems an invitation token; the response carries a bearer
// token for the invited user.
func (c *Client) AcceptInvitation(ctx context.Context, invitationToken string) (*transport.InvitationResponse, error) {
	var out transport.InvitationResponse
	if err := c.do(ctx, fasthttp.MethodGet, "/api/invite/"+url.PathEscape(invitationToken), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetUsersByGroup(ctx context.Context, groupID string) ([]domain.GroupMember, error) {
	var out []domain.GroupMember
	if err := c.do(ctx, fasthttp.MethodGet, groupPath(groupID)+"/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetGroupWishes(ctx context.Context, groupID string) ([]domain.Wish, error) {
	var out []domain.Wish
	if err := c.do(ctx, fasthttp.MethodGet, wishesPath(groupID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetMyWishes(ctx context.Context, groupID string) ([]domain.Wish, error) {
	var out []domain.Wish
	if err := c.do(ctx, fasthttp.MethodGet, wishesPath(groupID)+"/me", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUserWishes(ctx context.Context, groupID, userID string) ([]domain.Wish, error) {
	var out []domain.Wish
	if err := c.do(ctx, fasthttp.MethodGet, wishesPath(groupID)+"/users/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddWish(ctx context.Context, groupID string, req transport.WishRequest) (*domain.Wish, error) {
	var out domain.Wish
	if err := c.do(ctx, fasthttp.MethodPost, wishesPath(groupID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateWish(ctx context.Context, groupID, wishID string, req transport.WishRequest) (*domain.Wish, error) {
	var out domain.Wish
	if err := c.do(ctx, fasthttp.MethodPut, wishPath(groupID, wishID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteWish(ctx context.Context, groupID, wishID string) error {
	return c.do(ctx, fasthttp.MethodDelete, wishPath(groupID, wishID), nil, nil)
}

func (c *Client) ReserveWish(ctx context.Context, groupID, wishID string) (*domain.Wish, error) {
	var out domain.Wish
	if err := c.do(ctx, fasthttp.MethodPost, wishPath(groupID, wishID)+"/reserve", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UnreserveWish(ctx context.Context, groupID, wishID string) (*domain.Wish, error) {
	var out domain.Wish
	if err := c.do(ctx, fasthttp.MethodDelete, wishPath(groupID, wishID)+"/reserve", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func groupPath(groupID string) string {
	return "/api/groups/" + url.PathEscape(groupID)
}

func wishesPath(groupID string) string {
	return groupPath(groupID) + "/wishes"
}

func wishPath(groupID, wishID string) string {
	return wishesPath(groupID) + "/" + url.PathEscape(wishID)
}
