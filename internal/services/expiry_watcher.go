package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/wishgift/domain"
	"github.com/fastygo/wishgift/internal/navigation"
)

// SessionSource is the part of the session the watcher inspects and ends.
type SessionSource interface {
	IsAuthenticated() bool
	Claims() (domain.Claims, error)
	Logout(ctx context.Context) error
}

// Navigator moves the client after the session ended.
type Navigator interface {
	Current() navigation.Location
	Navigate(ctx context.Context, loc navigation.Location) (navigation.Location, bool)
}

// WatcherConfig controls how often the live token is checked.
type WatcherConfig struct {
	Interval time.Duration
	Now      func() time.Time
}

// ExpiryWatcher ends the session as soon as the live token expires, without
// waiting for the API to reject a request.
type ExpiryWatcher struct {
	session SessionSource
	nav     Navigator
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     WatcherConfig
}

func NewExpiryWatcher(session SessionSource, nav Navigator, logger *zap.Logger, cfg WatcherConfig) (*ExpiryWatcher, error) {
	if cfg.Interval < time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &ExpiryWatcher{
		session: session,
		nav:     nav,
		logger:  logger.Named("expiry"),
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	if _, err := w.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		w.Check(ctx)
	}); err != nil {
		return nil, fmt.Errorf("schedule expiry check: %w", err)
	}
	return w, nil
}

// Start launches the cron scheduler.
func (w *ExpiryWatcher) Start() {
	if w == nil || w.cron == nil {
		return
	}
	w.cron.Start()
	w.logger.Info("expiry watcher started", zap.Duration("interval", w.cfg.Interval))
}

// Stop waits for a running check to finish or ctx to end.
func (w *ExpiryWatcher) Stop(ctx context.Context) {
	if w == nil || w.cron == nil {
		return
	}
	stopCtx := w.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	w.logger.Info("expiry watcher stopped")
}

// Check logs out an expired session and reports whether it did.
func (w *ExpiryWatcher) Check(ctx context.Context) bool {
	if !w.session.IsAuthenticated() {
		return false
	}

	privileged := true
	claims, err := w.session.Claims()
	switch {
	case err != nil:
		w.logger.Warn("live token undecodable", zap.Error(err))
	case !claims.Expired(w.cfg.Now()):
		return false
	default:
		privileged = claims.IsAdmin
	}

	w.logger.Info("session token expired", zap.Time("expires_at", claims.ExpiresAt))
	if err := w.session.Logout(ctx); err != nil {
		w.logger.Warn("logout after expiry", zap.Error(err))
	}

	if privileged {
		w.nav.Navigate(ctx, navigation.Home(true))
	} else if w.nav.Current().Path != navigation.PathTokenExpired {
		w.nav.Navigate(ctx, navigation.Location{Path: navigation.PathTokenExpired})
	}
	return true
}
