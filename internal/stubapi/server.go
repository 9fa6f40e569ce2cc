// Package stubapi is an in-process fake of the wishgift REST API. It signs
// real HS256 tokens and enforces bearer authentication so client flows can be
// exercised end to end in tests and local development.
package stubapi

import (
	"errors"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"go.uber.org/zap"

	"github.com/fastygo/wishgift/domain"
)

// BaseURL is the address clients use to reach an in-memory stub.
const BaseURL = "http://wishgift.stub"

type Options struct {
	Secret   []byte
	TokenTTL time.Duration
	Logger   *zap.Logger
}

type userRecord struct {
	member   domain.GroupMember
	password string
}

// Server holds the fake API state.
type Server struct {
	secret []byte
	ttl    time.Duration
	logger *zap.Logger

	mu          sync.Mutex
	users       map[string]*userRecord
	byEmail     map[string]string
	groups      map[string]*domain.Group
	groupOrder  []string
	memberships map[string][]string
	invitations map[string]*domain.Invitation
	wishes      map[string]*domain.Wish
	hits        map[string]int
	forced      map[string]int

	server *fasthttp.Server
	ln     *fasthttputil.InmemoryListener
}

func New(opts Options) *Server {
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("wishgift-stub-secret")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{
		secret:      opts.Secret,
		ttl:         opts.TokenTTL,
		logger:      opts.Logger,
		users:       make(map[string]*userRecord),
		byEmail:     make(map[string]string),
		groups:      make(map[string]*domain.Group),
		memberships: make(map[string][]string),
		invitations: make(map[string]*domain.Invitation),
		wishes:      make(map[string]*domain.Wish),
		hits:        make(map[string]int),
		forced:      make(map[string]int),
	}
}

// Start serves the stub on an in-memory listener. Use Dial to connect.
func (s *Server) Start() {
	ln := fasthttputil.NewInmemoryListener()
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	server := s.newHTTPServer()
	go func() {
		if err := server.Serve(ln); err != nil {
			s.logger.Debug("stub server stopped", zap.Error(err))
		}
	}()
}

// ListenAndServe serves the stub on a real TCP address.
func (s *Server) ListenAndServe(addr string) error {
	return s.newHTTPServer().ListenAndServe(addr)
}

func (s *Server) newHTTPServer() *fasthttp.Server {
	server := &fasthttp.Server{Handler: s.Handler(), Name: "wishgift-stub"}
	s.mu.Lock()
	s.server = server
	s.mu.Unlock()
	return server
}

// Dial connects to the in-memory listener regardless of addr.
func (s *Server) Dial(string) (net.Conn, error) {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return nil, errors.New("stub api is not serving")
	}
	return ln.Dial()
}

// Close stops serving. It is safe to call more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	server, ln := s.server, s.ln
	s.server, s.ln = nil, nil
	s.mu.Unlock()
	var err error
	if server != nil {
		err = server.Shutdown()
	}
	if ln != nil {
		// Shutdown only closes listeners Serve has already picked up.
		_ = ln.Close()
	}
	return err
}

// Hits reports how many requests reached the route pattern, e.g. "GET /api/groups".
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// Force makes every request to route answer with status until Unforce is called.
func (s *Server) Force(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced[route] = status
}

func (s *Server) Unforce(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.forced, route)
}

// SeedUser registers a user. An empty password creates an invitation-only member.
func (s *Server) SeedUser(email, password string, isAdmin bool) domain.GroupMember {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createUserLocked(email, password, isAdmin)
}

// SeedGroup creates a group owned by adminID.
func (s *Server) SeedGroup(adminID, name string) domain.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.createGroupLocked(adminID, name, domain.DefaultGroupType)
}

// SeedMembership adds userID to groupID.
func (s *Server) SeedMembership(groupID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addMemberLocked(groupID, userID)
}

// SeedInvitation creates a pending invitation and returns its token.
func (s *Server) SeedInvitation(groupID, email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createInvitationLocked(groupID, email).Token
}

// Member returns the stored record of a user.
func (s *Server) Member(userID string) (domain.GroupMember, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[userID]
	if !ok {
		return domain.GroupMember{}, false
	}
	return rec.member, true
}

// IssueToken signs a token for userID reflecting the current memberships.
func (s *Server) IssueToken(userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(userID, true)
}

// Sign produces an HS256 token carrying claims. A nil GroupIDs omits the claim.
func Sign(secret []byte, c domain.Claims) (string, error) {
	claims := jwt.MapClaims{
		"sub":     c.Subject,
		"isAdmin": c.IsAdmin,
		"iat":     c.IssuedAt.Unix(),
		"exp":     c.ExpiresAt.Unix(),
	}
	if c.GroupIDs != nil {
		claims["groupIds"] = c.GroupIDs
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *Server) issueLocked(userID string, withGroups bool) (string, error) {
	rec := s.users[userID]
	now := time.Now()
	c := domain.Claims{
		Subject:   userID,
		IsAdmin:   rec != nil && rec.member.IsAdmin,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if withGroups {
		c.GroupIDs = s.groupIDsOfLocked(userID)
	}
	return Sign(s.secret, c)
}

func (s *Server) createUserLocked(email, password string, isAdmin bool) domain.GroupMember {
	if id, ok := s.byEmail[email]; ok {
		return s.users[id].member
	}
	rec := &userRecord{
		member: domain.GroupMember{
			ID:        uuid.NewString(),
			Email:     email,
			IsAdmin:   isAdmin,
			CreatedAt: time.Now().UTC(),
		},
		password: password,
	}
	s.users[rec.member.ID] = rec
	s.byEmail[email] = rec.member.ID
	return rec.member
}

func (s *Server) createGroupLocked(adminID, name, kind string) *domain.Group {
	g := &domain.Group{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      kind,
		AdminID:   adminID,
		CreatedAt: time.Now().UTC(),
	}
	s.groups[g.ID] = g
	s.groupOrder = append(s.groupOrder, g.ID)
	s.addMemberLocked(g.ID, adminID)
	return g
}

func (s *Server) addMemberLocked(groupID, userID string) {
	for _, id := range s.memberships[groupID] {
		if id == userID {
			return
		}
	}
	s.memberships[groupID] = append(s.memberships[groupID], userID)
}

func (s *Server) isMemberLocked(groupID, userID string) bool {
	for _, id := range s.memberships[groupID] {
		if id == userID {
			return true
		}
	}
	return false
}

func (s *Server) groupIDsOfLocked(userID string) []string {
	out := []string{}
	for _, gid := range s.groupOrder {
		if _, ok := s.groups[gid]; ok && s.isMemberLocked(gid, userID) {
			out = append(out, gid)
		}
	}
	return out
}

func (s *Server) createInvitationLocked(groupID, email string) *domain.Invitation {
	inv := &domain.Invitation{
		ID:        uuid.NewString(),
		Email:     email,
		GroupID:   groupID,
		Token:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	inv.InvitationLink = "/invite/" + inv.Token
	s.invitations[inv.Token] = inv
	return inv
}

func (s *Server) wishesLocked(filter func(*domain.Wish) bool) []domain.Wish {
	out := []domain.Wish{}
	for _, w := range s.wishes {
		if filter(w) {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
