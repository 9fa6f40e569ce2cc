// Package session owns the live authentication state and mirrors it into the
// persisted record. Operations return an error and record user-facing
// failures in LastError.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/wishgift/api/transport"
	"github.com/fastygo/wishgift/domain"
	"github.com/fastygo/wishgift/internal/gateway"
	"github.com/fastygo/wishgift/internal/token"
	"github.com/fastygo/wishgift/repository"
	"github.com/fastygo/wishgift/usecase"
)

const msgAvatarUpdate = "failed to update profile"

type Options struct {
	Repository repository.SessionRepository
	Gateway    *gateway.Gateway
	Logger     *zap.Logger
	// Now overrides the clock used for expiry checks.
	Now func() time.Time
}

// Manager is the single live session of the process.
type Manager struct {
	record  *record
	gateway *gateway.Gateway
	now     func() time.Time
	logger  *zap.Logger

	// persistMu orders record writes; mu is never held while they run.
	persistMu sync.Mutex

	mu         sync.RWMutex
	phase      domain.Phase
	token      string
	user       *domain.User
	loading    bool
	lastError  string
	generation uint64
	groups     usecase.GroupSync
	dependents []usecase.Resetter
}

func New(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger.Named("session")
	return &Manager{
		record:  &record{repo: opts.Repository, logger: logger},
		gateway: opts.Gateway,
		now:     opts.Now,
		logger:  logger,
		phase:   domain.PhaseAnonymous,
	}
}

// Attach wires the state that follows the session identity. Call once during
// construction, before any operation runs.
func (m *Manager) Attach(groups usecase.GroupSync, dependents ...usecase.Resetter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups = groups
	m.dependents = append(m.dependents, dependents...)
}

// State returns a copy of the live session.
func (m *Manager) State() domain.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.SessionState{
		Phase:     m.phase,
		Token:     m.token,
		User:      m.user.Clone(),
		IsLoading: m.loading,
		LastError: m.lastError,
	}
}

func (m *Manager) User() *domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.Clone()
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase == domain.PhaseAuthenticated && m.token != ""
}

func (m *Manager) IsAdmin() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.IsAdmin()
}

// Claims decodes the live token on demand.
func (m *Manager) Claims() (domain.Claims, error) {
	m.mu.RLock()
	raw := m.token
	m.mu.RUnlock()
	if raw == "" {
		return domain.Claims{}, domain.ErrNotAuthenticated
	}
	return token.Decode(raw)
}

// Login exchanges credentials for a token and adopts it.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	gen := m.begin()
	resp, err := m.gateway.Anonymous().Login(ctx, email, password)
	if err != nil {
		return m.fail(gen, loginError(err))
	}
	return m.adopt(ctx, gen, resp.Token, email, resp.AvatarID, resp.Pseudo, false)
}

// Register creates an admin account and signs it in.
func (m *Manager) Register(ctx context.Context, email, password string) error {
	gen := m.begin()
	resp, err := m.gateway.Anonymous().Register(ctx, email, password)
	if err != nil {
		return m.fail(gen, apiError(err, domain.MsgConnection))
	}
	return m.adopt(ctx, gen, resp.Token, email, resp.AvatarID, resp.Pseudo, false)
}

// LoginWithToken adopts a token obtained outside the password flow.
func (m *Manager) LoginWithToken(ctx context.Context, raw, email string, avatarID, pseudo *string) error {
	gen := m.begin()
	return m.adopt(ctx, gen, raw, email, avatarID, pseudo, true)
}

// AcceptInvitation redeems an invitation and signs the invited member in.
func (m *Manager) AcceptInvitation(ctx context.Context, invitationToken string) error {
	gen := m.begin()
	resp, err := m.gateway.Anonymous().AcceptInvitation(ctx, invitationToken)
	if err != nil {
		return m.fail(gen, apiError(err, "invalid or expired invitation"))
	}
	if resp.JWTToken == nil || *resp.JWTToken == "" {
		return m.fail(gen, domain.NewError(domain.ErrCodeInvalid, "invitation did not return a token"))
	}
	return m.adopt(ctx, gen, *resp.JWTToken, resp.Email, nil, nil, true)
}

// RestoreSession seeds the session from the persisted record and reports
// whether it ended authenticated. Absent, corrupt or expired records are purged.
func (m *Manager) RestoreSession(ctx context.Context) bool {
	m.mu.RLock()
	gen := m.generation
	m.mu.RUnlock()

	discard := func() bool {
		_ = m.persist(gen, func() error { return m.record.purge(ctx) })
		return false
	}

	raw, user, err := m.record.load(ctx)
	if err != nil {
		if err != errRecordAbsent {
			m.logger.Warn("discarding persisted session", zap.Error(err))
		}
		return discard()
	}

	claims, err := token.Decode(raw)
	if err != nil {
		m.logger.Warn("persisted token undecodable", zap.Error(err))
		return discard()
	}
	if claims.Expired(m.now()) {
		m.logger.Info("persisted token expired", zap.Time("expires_at", claims.ExpiresAt))
		return discard()
	}
	if claims.Subject != user.ID {
		m.logger.Warn("persisted user does not match token subject")
		return discard()
	}
	user.GroupIDs = append([]string{}, claims.GroupIDs...)

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return false
	}
	m.setAuthenticated(raw, user)
	groups := m.groups
	m.mu.Unlock()

	if err := m.persist(gen, func() error { return m.record.saveUser(ctx, user) }); err != nil {
		m.logger.Warn("persist restored user", zap.Error(err))
	}

	m.logger.Info("session restored", zap.String("user_id", user.ID), zap.Bool("admin", claims.IsAdmin))
	if groups != nil {
		var err error
		if claims.IsAdmin {
			err = groups.FetchAdminGroups(ctx)
		} else {
			err = groups.FetchMyGroups(ctx)
		}
		if err != nil {
			m.logger.Warn("refresh groups after restore", zap.Error(err))
		}
	}
	// A 401 during the refresh may already have ended the session.
	return m.IsAuthenticated()
}

// UpdateToken adopts a server-minted token carrying new claims. Only the
// group memberships of the user snapshot change.
func (m *Manager) UpdateToken(ctx context.Context, raw string) error {
	claims, err := token.Decode(raw)
	if err != nil {
		m.logger.Warn("refusing undecodable token", zap.Error(err))
		return err
	}

	m.mu.Lock()
	if m.token == "" || m.user == nil {
		m.mu.Unlock()
		return domain.ErrNotAuthenticated
	}
	if claims.Subject != m.user.ID {
		m.mu.Unlock()
		return domain.NewError(domain.ErrCodeInvalid, "token subject does not match session user")
	}
	m.token = raw
	m.user.GroupIDs = append([]string{}, claims.GroupIDs...)
	m.gateway.Configure(raw)
	user := m.user.Clone()
	gen := m.generation
	m.mu.Unlock()

	if err := m.persist(gen, func() error { return m.record.save(ctx, raw, user) }); err != nil {
		m.logger.Warn("persist updated token", zap.Error(err))
	}
	m.logger.Debug("token updated", zap.Strings("group_ids", claims.GroupIDs))
	return nil
}

// UpdateAvatar sends only the fields that differ from the current user.
func (m *Manager) UpdateAvatar(ctx context.Context, avatarID, pseudo *string) error {
	m.mu.RLock()
	user := m.user.Clone()
	gen := m.generation
	m.mu.RUnlock()
	if user == nil {
		return domain.ErrNotAuthenticated
	}

	var req transport.UpdateAvatarRequest
	if changed(user.AvatarID, avatarID) {
		req.AvatarID = avatarID
	}
	if changed(user.Pseudo, pseudo) {
		req.Pseudo = pseudo
	}
	if req.Empty() {
		return nil
	}

	m.setLoading(gen, true)
	resp, err := m.gateway.Current().UpdateUserAvatar(ctx, req)
	if err != nil {
		return m.fail(gen, apiError(err, msgAvatarUpdate))
	}

	m.mu.Lock()
	if gen != m.generation || m.user == nil {
		m.mu.Unlock()
		return domain.ErrNotAuthenticated
	}
	m.user.AvatarID = resp.AvatarID
	m.user.Pseudo = resp.Pseudo
	m.loading = false
	m.lastError = ""
	user = m.user.Clone()
	groups := m.groups
	m.mu.Unlock()

	if err := m.persist(gen, func() error { return m.record.saveUser(ctx, user) }); err != nil {
		m.logger.Warn("persist avatar", zap.Error(err))
	}
	if groups != nil {
		groups.ApplyMemberProfile(user.ID, resp.AvatarID, resp.Pseudo)
	}
	return nil
}

// Logout always leaves the session anonymous, even when the purge fails.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.generation++
	wasAuthenticated := m.token != ""
	m.phase = domain.PhaseAnonymous
	m.token = ""
	m.user = nil
	m.loading = false
	m.lastError = ""
	m.gateway.Configure("")
	gen := m.generation
	m.mu.Unlock()

	err := m.persist(gen, func() error { return m.record.purge(ctx) })
	m.resetDependents()
	if wasAuthenticated {
		m.logger.Info("logged out")
	}
	return err
}

func (m *Manager) begin() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == domain.PhaseAnonymous {
		m.phase = domain.PhaseAuthenticating
	}
	m.loading = true
	m.lastError = ""
	return m.generation
}

func (m *Manager) setLoading(gen uint64, loading bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen == m.generation {
		m.loading = loading
	}
}

// fail records err unless a logout happened since gen was taken.
func (m *Manager) fail(gen uint64, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return err
	}
	m.loading = false
	m.lastError = domain.Message(err, domain.MsgConnection)
	if m.token == "" {
		m.phase = domain.PhaseAnonymous
	}
	m.logger.Debug("session operation failed", zap.Error(err))
	return err
}

// adopt installs raw as the live credential. Admins with groups get their
// owned groups fetched; members only when fetchMemberGroups is set.
func (m *Manager) adopt(ctx context.Context, gen uint64, raw, email string, avatarID, pseudo *string, fetchMemberGroups bool) error {
	claims, err := token.Decode(raw)
	if err != nil {
		m.logger.Warn("received undecodable token", zap.Error(err))
		return m.fail(gen, domain.WrapError(domain.ErrCodeDecode, "received an invalid session token", err))
	}

	user := &domain.User{
		ID:       claims.Subject,
		Email:    email,
		Roles:    domain.RolesFor(claims.IsAdmin),
		GroupIDs: append([]string{}, claims.GroupIDs...),
		AvatarID: avatarID,
		Pseudo:   pseudo,
	}

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return domain.ErrNotAuthenticated
	}
	// Responses started under the previous credential must not land here.
	m.generation++
	gen = m.generation
	switched := m.user != nil && m.user.ID != user.ID
	m.setAuthenticated(raw, user)
	groups := m.groups
	m.mu.Unlock()

	if switched {
		m.logger.Info("identity changed, dropping previous user state")
		m.resetDependents()
	}
	if err := m.persist(gen, func() error { return m.record.save(ctx, raw, user) }); err != nil {
		m.logger.Warn("persist session", zap.Error(err))
	}

	m.logger.Info("session started", zap.String("user_id", user.ID), zap.Bool("admin", claims.IsAdmin))
	if groups == nil || len(claims.GroupIDs) == 0 {
		return nil
	}

	switch {
	case claims.IsAdmin:
		err = groups.FetchAdminGroups(ctx)
	case fetchMemberGroups:
		err = groups.FetchMyGroups(ctx)
	}
	if err != nil {
		m.logger.Warn("fetch groups after sign-in", zap.Error(err))
	}
	return nil
}

// persist runs write unless the session moved past gen. Record writes are
// serialized so a purge is never overtaken by a stale save.
func (m *Manager) persist(gen uint64, write func() error) error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()
	m.mu.RLock()
	current := m.generation
	m.mu.RUnlock()
	if current != gen {
		return nil
	}
	return write()
}

func (m *Manager) resetDependents() {
	m.mu.RLock()
	groups := m.groups
	dependents := append([]usecase.Resetter(nil), m.dependents...)
	m.mu.RUnlock()

	if groups != nil {
		groups.Reset()
	}
	for _, d := range dependents {
		d.Reset()
	}
}

// setAuthenticated must be called with m.mu held.
func (m *Manager) setAuthenticated(raw string, user *domain.User) {
	m.phase = domain.PhaseAuthenticated
	m.token = raw
	m.user = user.Clone()
	m.loading = false
	m.lastError = ""
	m.gateway.Configure(raw)
}

func loginError(err error) error {
	switch gateway.StatusCode(err) {
	case fasthttp.StatusUnauthorized:
		return domain.ErrInvalidCreds.Wrap(err)
	case fasthttp.StatusForbidden:
		return domain.ErrForbiddenRole.Wrap(err)
	}
	return apiError(err, domain.MsgConnection)
}

// apiError keeps domain errors as they are and surfaces the server message of
// any other API failure.
func apiError(err error, fallback string) error {
	if gateway.StatusCode(err) == 0 {
		var dErr *domain.Error
		if errors.As(err, &dErr) {
			return err
		}
		return domain.WrapError(domain.ErrCodeNetwork, domain.MsgConnection, err)
	}
	return domain.WrapError(domain.ErrCodeNetwork, gateway.MessageOf(err, fallback), err)
}

func changed(current, next *string) bool {
	if next == nil {
		return false
	}
	return current == nil || *current != *next
}
