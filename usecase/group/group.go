package group

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fastygo/wishgift/api/transport"
	"github.com/fastygo/wishgift/domain"
	"github.com/fastygo/wishgift/internal/gateway"
	"github.com/fastygo/wishgift/usecase"
)

// Store caches the groups, members and invitations visible to the session.
type Store struct {
	gateway *gateway.Gateway
	logger  *zap.Logger

	mu          sync.RWMutex
	tokens      usecase.TokenUpdater
	generation  uint64
	groups      []domain.Group
	members     map[string][]domain.GroupMember
	invitations map[string][]domain.Invitation
	loading     bool
	err         string
}

func New(gw *gateway.Gateway, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		gateway:     gw,
		logger:      logger.Named("groups"),
		members:     make(map[string][]domain.GroupMember),
		invitations: make(map[string][]domain.Invitation),
	}
}

// UseTokens sets where tokens minted by group creation are forwarded.
func (s *Store) UseTokens(tokens usecase.TokenUpdater) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
}

// FetchAdminGroups loads the groups the caller administers.
func (s *Store) FetchAdminGroups(ctx context.Context) error {
	gen := s.start()
	groups, err := s.gateway.Current().GetGroups(ctx)
	return s.finish(gen, err, func() { s.groups = groups })
}

// FetchMyGroups loads the groups the caller belongs to.
func (s *Store) FetchMyGroups(ctx context.Context) error {
	gen := s.start()
	groups, err := s.gateway.Current().GetUserGroups(ctx)
	return s.finish(gen, err, func() { s.groups = groups })
}

func (s *Store) FetchGroupMembers(ctx context.Context, groupID string) ([]domain.GroupMember, error) {
	gen := s.start()
	members, err := s.gateway.Current().GetUsersByGroup(ctx, groupID)
	if err := s.finish(gen, err, func() { s.members[groupID] = members }); err != nil {
		return nil, err
	}
	return append([]domain.GroupMember(nil), members...), nil
}

// CreateGroup creates a group owned by the caller and adopts the token the
// API mints for the new ownership.
func (s *Store) CreateGroup(ctx context.Context, name string) (*domain.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "group name is required")
	}

	gen := s.start()
	resp, err := s.gateway.Current().CreateGroup(ctx, transport.GroupRequest{Name: name, Type: domain.DefaultGroupType})
	if err := s.finish(gen, err, func() { s.groups = append(s.groups, resp.Group) }); err != nil {
		return nil, err
	}

	s.mu.RLock()
	tokens := s.tokens
	s.mu.RUnlock()
	if resp.JWTToken != nil && tokens != nil {
		if err := tokens.UpdateToken(ctx, *resp.JWTToken); err != nil {
			s.logger.Warn("adopt token after group creation", zap.Error(err))
		}
	}
	group := resp.Group
	return &group, nil
}

func (s *Store) UpdateGroup(ctx context.Context, groupID, name string) (*domain.Group, error) {
	gen := s.start()
	resp, err := s.gateway.Current().UpdateGroup(ctx, groupID, transport.GroupRequest{Name: strings.TrimSpace(name), Type: domain.DefaultGroupType})
	if err := s.finish(gen, err, func() {
		for i := range s.groups {
			if s.groups[i].ID == groupID {
				s.groups[i] = resp.Group
			}
		}
	}); err != nil {
		return nil, err
	}
	group := resp.Group
	return &group, nil
}

func (s *Store) DeleteGroup(ctx context.Context, groupID string) error {
	gen := s.start()
	err := s.gateway.Current().DeleteGroup(ctx, groupID)
	return s.finish(gen, err, func() {
		kept := s.groups[:0]
		for _, g := range s.groups {
			if g.ID != groupID {
				kept = append(kept, g)
			}
		}
		s.groups = kept
		delete(s.members, groupID)
		delete(s.invitations, groupID)
	})
}

func (s *Store) InviteUser(ctx context.Context, groupID, email string) (*domain.Invitation, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "email is required")
	}
	gen := s.start()
	resp, err := s.gateway.Current().Invite(ctx, groupID, email)
	if err := s.finish(gen, err, func() {
		s.invitations[groupID] = append(s.invitations[groupID], resp.Invitation)
	}); err != nil {
		return nil, err
	}
	inv := resp.Invitation
	return &inv, nil
}

func (s *Store) Invitations(ctx context.Context, groupID string) ([]domain.Invitation, error) {
	gen := s.start()
	list, err := s.gateway.Current().GetInvitations(ctx, groupID)
	if err := s.finish(gen, err, func() { s.invitations[groupID] = list }); err != nil {
		return nil, err
	}
	return append([]domain.Invitation(nil), list...), nil
}

// ApplyMemberProfile updates every cached member record of userID.
func (s *Store) ApplyMemberProfile(userID string, avatarID, pseudo *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, members := range s.members {
		for i := range members {
			if members[i].ID != userID {
				continue
			}
			members[i].AvatarID = copyString(avatarID)
			members[i].Pseudo = copyString(pseudo)
		}
	}
}

// Reset drops all cached state. Responses still in flight are discarded.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.groups = nil
	s.members = make(map[string][]domain.GroupMember)
	s.invitations = make(map[string][]domain.Invitation)
	s.loading = false
	s.err = ""
}

func (s *Store) Groups() []domain.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Group(nil), s.groups...)
}

func (s *Store) Members(groupID string) []domain.GroupMember {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.GroupMember(nil), s.members[groupID]...)
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the message of the last failed operation.
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Store) start() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.err = ""
	return s.generation
}

// finish applies the result unless Reset ran since gen was taken.
func (s *Store) finish(gen uint64, err error, apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		if err != nil {
			return err
		}
		return domain.ErrNotAuthenticated
	}
	s.loading = false
	if err != nil {
		s.err = gateway.MessageOf(err, domain.Message(err, "request failed"))
		s.logger.Debug("group operation failed", zap.Error(err))
		return err
	}
	apply()
	return nil
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
