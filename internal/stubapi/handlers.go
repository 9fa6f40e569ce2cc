package stubapi

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/wishgift/api/transport"
	"github.com/fastygo/wishgift/domain"
)

func (s *Server) login(ctx *fasthttp.RequestCtx) {
	var req transport.AuthRequest
	if err := decodeBody(ctx, &req); err != nil {
		respond(ctx, 0, nil, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[strings.TrimSpace(req.Email)]
	if !ok {
		respondError(ctx, fasthttp.StatusUnauthorized, "invalid credentials")
		return
	}
	rec := s.users[id]
	if !rec.member.IsAdmin || rec.password == "" {
		respondError(ctx, fasthttp.StatusForbidden, "access denied")
		return
	}
	if rec.password != req.Password {
		respondError(ctx, fasthttp.StatusUnauthorized, "invalid credentials")
		return
	}
	s.respondAuthLocked(ctx, rec, true)
}

func (s *Server) register(ctx *fasthttp.RequestCtx) {
	var req transport.AuthRequest
	if err := decodeBody(ctx, &req); err != nil {
		respond(ctx, 0, nil, err)
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		respondError(ctx, fasthttp.StatusBadRequest, "email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		respondError(ctx, fasthttp.StatusBadRequest, "email already registered")
		return
	}
	member := s.createUserLocked(email, req.Password, true)
	s.respondAuthLocked(ctx, s.users[member.ID], false)
}

func (s *Server) respondAuthLocked(ctx *fasthttp.RequestCtx, rec *userRecord, withGroups bool) {
	token, err := s.issueLocked(rec.member.ID, withGroups)
	if err != nil {
		respondError(ctx, fasthttp.StatusInternalServerError, "token signing failed")
		return
	}
	respondJSON(ctx, fasthttp.StatusOK, transport.AuthResponse{
		UserID:   rec.member.ID,
		IsAdmin:  rec.member.IsAdmin,
		Token:    token,
		AvatarID: rec.member.AvatarID,
		Pseudo:   rec.member.Pseudo,
	})
}

func (s *Server) updateAvatar(ctx *fasthttp.RequestCtx) {
	var req transport.UpdateAvatarRequest
	if err := decodeBody(ctx, &req); err != nil {
		respond(ctx, 0, nil, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.users[currentUser(ctx)]
	if req.AvatarID != nil {
		rec.member.AvatarID = domain.StringPtr(*req.AvatarID)
	}
	if req.Pseudo != nil {
		rec.member.Pseudo = domain.StringPtr(*req.Pseudo)
	}
	respondJSON(ctx, fasthttp.StatusOK, transport.AvatarResponse{
		ID:       rec.member.ID,
		Email:    rec.member.Email,
		AvatarID: rec.member.AvatarID,
		Pseudo:   rec.member.Pseudo,
	})
}

func (s *Server) adminGroups(ctx *fasthttp.RequestCtx) {
	userID := currentUser(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Group{}
	for _, gid := range s.groupOrder {
		if g, ok := s.groups[gid]; ok && g.AdminID == userID {
			out = append(out, *g)
		}
	}
	respondJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) myGroups(ctx *fasthttp.RequestCtx) {
	userID := currentUser(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Group{}
	for _, gid := range s.groupIDsOfLocked(userID) {
		out = append(out, *s.groups[gid])
	}
	respondJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) createGroup(ctx *fasthttp.RequestCtx) {
	var req transport.GroupRequest
	if err := decodeBody(ctx, &req); err != nil {
		respond(ctx, 0, nil, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(ctx, fasthttp.StatusBadRequest, "group name is required")
		return
	}
	if req.Type == "" {
		req.Type = domain.DefaultGroupType
	}

	userID := currentUser(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.users[userID].member.IsAdmin {
		respond(ctx, 0, nil, errForbidden)
		return
	}
	g := s.createGroupLocked(userID, strings.TrimSpace(req.Name), req.Type)
	token, err := s.issueLocked(userID, true)
	if err != nil {
		respondError(ctx, fasthttp.StatusInternalServerError, "token signing failed")
		return
	}
	respondJSON(ctx, fasthttp.StatusCreated, transport.GroupResponse{Group: *g, JWTToken: &token})
}

func (s *Server) updateGroup(ctx *fasthttp.RequestCtx) {
	var req transport.GroupRequest
	if err := decodeBody(ctx, &req); err != nil {
		respond(ctx, 0, nil, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, apiErr := s.ownedGroupLocked(ctx)
	if apiErr != nil {
		respond(ctx, 0, nil, apiErr)
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		g.Name = name
	}
	if req.Type != "" {
		g.Type = req.Type
	}
	respondJSON(ctx, fasthttp.StatusOK, transport.GroupResponse{Group: *g})
}

func (s *Server) deleteGroup(ctx *fasthttp.RequestCtx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, apiErr := s.ownedGroupLocked(ctx)
	if apiErr != nil {
		respond(ctx, 0, nil, apiErr)
		return
	}
	delete(s.groups, g.ID)
	delete(s.memberships, g.ID)
	for id, w := range s.wishes {
		if w.GroupID == g.ID {
			delete(s.wishes, id)
		}
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) groupUsers(ctx *fasthttp.RequestCtx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, apiErr := s.memberGroupLocked(ctx)
	if apiErr != nil {
		respond(ctx, 0, nil, apiErr)
		return
	}
	out := make([]domain.GroupMember, 0, len(s.memberships[g.ID]))
	for _, id := range s.memberships[g.ID] {
		out = append(out, s.users[id].member)
	}
	respondJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) invite(ctx *fasthttp.RequestCtx) {
	var req transport.InvitationRequest
	if err := decodeBody(ctx, &req); err != nil {
		respond(ctx, 0, nil, err)
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		respondError(ctx, fasthttp.StatusBadRequest, "email is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, apiErr := s.ownedGroupLocked(ctx)
	if apiErr != nil {
		respond(ctx, 0, nil, apiErr)
		return
	}
	inv := s.createInvitationLocked(g.ID, email)
	respondJSON(ctx, fasthttp.StatusCreated, transport.InvitationResponse{Invitation: *inv})
}

func (s *Server) invitationsOf(ctx *fasthttp.RequestCtx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, apiErr := s.ownedGroupLocked(ctx)
	if apiErr != nil {
		respond(ctx, 0, nil, apiErr)
		return
	}
	out := []domain.Invitation{}
	for _, inv := range s.invitations {
		if inv.GroupID == g.ID {
			out = append(out, *inv)
		}
	}
	respondJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) acceptInvitation(ctx *fasthttp.RequestCtx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invitations[param(ctx, "token")]
	if !ok {
		respond(ctx, 0, nil, errNotFound)
		return
	}
	if _, ok := s.groups[inv.GroupID]; !ok {
		respond(ctx, 0, nil, errNotFound)
		return
	}
	member := s.createUserLocked(inv.Email, "", false)
	s.addMemberLocked(inv.GroupID, member.ID)
	inv.Accepted = true

	token, err := s.issueLocked(member.ID, true)
	if err != nil {
		respondError(ctx, fasthttp.StatusInternalServerError, "token signing failed")
		return
	}
	respondJSON(ctx, fasthttp.StatusOK, transport.InvitationResponse{Invitation: *inv, JWTToken: &token})
}

func (s *Server) groupWishes(ctx *fasthttp.RequestCtx) {
	userID := currentUser(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	g, apiErr := s.memberGroupLocked(ctx)
	if apiErr != nil {
		respond(ctx, 0, nil, apiErr)
		return
	}
	out := s.wishesLocked(func(w *domain.Wish) bool { return w.GroupID == g.ID })
	respondJSON(ctx, fasthttp.StatusOK, hideReservations(out, userID))
}

func (s *Server) myWishes(ctx *fasthttp.RequestCtx) {
	userID := currentUser(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	g, apiErr := s.memberGroupLocked(ctx)
	if apiErr != nil {
		respond(ctx, 0, nil, apiErr)
		return
	}
	out := s.wishesLocked(func(w *domain.Wish) bool { return w.GroupID == g.ID && w.UserID == userID })
	respondJSON(ctx, fasthttp.StatusOK, hideReservations(out, userID))
}

func (s *Server) userWishes(ctx *fasthttp.RequestCtx) {
	userID := currentUser(ctx)
	owner := param(ctx, "userId")
	s.mu.Lock()
	defer s.mu.Unlock()

	g, apiErr := s.memberGroupLocked(ctx)
	if apiErr != nil {
		respond(ctx, 0, nil, apiErr)
		return
	}
	out := s.wishesLocked(func(w *domain.Wish) bool { return w.GroupID == g.ID && w.UserID == owner })
	respondJSON(ctx, fasthttp.StatusOK, hideReservations(out, userID))
}

func (s *Server) addWish(ctx *fasthttp.RequestCtx) {
	var req transport.WishRequest
	if err := decodeBody(ctx, &req); err != nil {
		respond(ctx, 0, nil, err)
		return
	}
	if strings.TrimSpace(req.GiftName) == "" {
		respondError(ctx, fasthttp.StatusBadRequest, "gift name is required")
		return
	}

	userID := currentUser(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	g, apiErr := s.memberGroupLocked(ctx)
	if apiErr != nil {
		respond(ctx, 0, nil, apiErr)
		return
	}
	w := &domain.Wish{
		ID:        uuid.NewString(),
		UserID:    userID,
		GroupID:   g.ID,
		CreatedAt: time.Now().UTC(),
	}
	applyWish(w, req)
	s.wishes[w.ID] = w
	respondJSON(ctx, fasthttp.StatusCreated, w)
}

func (s *Server) updateWish(ctx *fasthttp.RequestCtx) {
	var req transport.WishRequest
	if err := decodeBody(ctx, &req); err != nil {
		respond(ctx, 0, nil, err)
		return
	}

	userID := currentUser(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, apiErr := s.wishLocked(ctx)
	if apiErr != nil {
		respond(ctx, 0, nil, apiErr)
		return
	}
	if w.UserID != userID {
		respond(ctx, 0, nil, errForbidden)
		return
	}
	if strings.TrimSpace(req.GiftName) == "" {
		req.GiftName = w.GiftName
	}
	applyWish(w, req)
	out := *w
	out.ReservedBy = nil
	respondJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) deleteWish(ctx *fasthttp.RequestCtx) {
	userID := currentUser(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, apiErr := s.wishLocked(ctx)
	if apiErr != nil {
		respond(ctx, 0, nil, apiErr)
		return
	}
	if w.UserID != userID {
		respond(ctx, 0, nil, errForbidden)
		return
	}
	delete(s.wishes, w.ID)
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) reserveWish(ctx *fasthttp.RequestCtx) {
	userID := currentUser(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, apiErr := s.wishLocked(ctx)
	if apiErr != nil {
		respond(ctx, 0, nil, apiErr)
		return
	}
	switch {
	case w.UserID == userID:
		respondError(ctx, fasthttp.StatusBadRequest, "cannot reserve your own wish")
		return
	case w.IsReserved():
		respondError(ctx, fasthttp.StatusConflict, "wish already reserved")
		return
	}
	w.ReservedBy = domain.StringPtr(userID)
	respondJSON(ctx, fasthttp.StatusOK, w)
}

func (s *Server) unreserveWish(ctx *fasthttp.RequestCtx) {
	userID := currentUser(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, apiErr := s.wishLocked(ctx)
	if apiErr != nil {
		respond(ctx, 0, nil, apiErr)
		return
	}
	if !w.IsReserved() || *w.ReservedBy != userID {
		respond(ctx, 0, nil, errForbidden)
		return
	}
	w.ReservedBy = nil
	respondJSON(ctx, fasthttp.StatusOK, w)
}

func (s *Server) ownedGroupLocked(ctx *fasthttp.RequestCtx) (*domain.Group, *apiError) {
	g, ok := s.groups[param(ctx, "groupId")]
	if !ok {
		return nil, errNotFound
	}
	if g.AdminID != currentUser(ctx) {
		return nil, errForbidden
	}
	return g, nil
}

func (s *Server) memberGroupLocked(ctx *fasthttp.RequestCtx) (*domain.Group, *apiError) {
	g, ok := s.groups[param(ctx, "groupId")]
	if !ok {
		return nil, errNotFound
	}
	if !s.isMemberLocked(g.ID, currentUser(ctx)) {
		return nil, errForbidden
	}
	return g, nil
}

func (s *Server) wishLocked(ctx *fasthttp.RequestCtx) (*domain.Wish, *apiError) {
	g, apiErr := s.memberGroupLocked(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	w, ok := s.wishes[param(ctx, "wishId")]
	if !ok || w.GroupID != g.ID {
		return nil, errNotFound
	}
	return w, nil
}

func applyWish(w *domain.Wish, req transport.WishRequest) {
	w.GiftName = strings.TrimSpace(req.GiftName)
	w.Description = req.Description
	w.URL = req.URL
	w.ImageURL = req.ImageURL
	w.Price = req.Price
}

// hideReservations blanks reservedBy on the caller's own wishes.
func hideReservations(wishes []domain.Wish, userID string) []domain.Wish {
	for i := range wishes {
		if wishes[i].UserID == userID {
			wishes[i].ReservedBy = nil
		}
	}
	return wishes
}
