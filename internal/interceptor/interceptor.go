// Package interceptor reacts to 401 responses on authenticated requests by
// purging the persisted session and redirecting once per burst of failures.
package interceptor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/wishgift/domain"
	"github.com/fastygo/wishgift/internal/gateway"
	"github.com/fastygo/wishgift/internal/navigation"
	"github.com/fastygo/wishgift/internal/token"
	"github.com/fastygo/wishgift/repository"
)

const (
	DefaultRedirectDelay = 100 * time.Millisecond
	DefaultFlagCooldown  = time.Second
)

type Options struct {
	Repository    repository.SessionRepository
	Router        *navigation.Router
	RedirectDelay time.Duration
	FlagCooldown  time.Duration
	// OnPurged runs after the persisted record is cleared, before navigation.
	OnPurged func(ctx context.Context)
	Logger   *zap.Logger
}

// Interceptor is registered on the gateway with gateway.Use(i.Observe).
type Interceptor struct {
	repo     repository.SessionRepository
	router   *navigation.Router
	delay    time.Duration
	cooldown time.Duration
	onPurged func(ctx context.Context)
	logger   *zap.Logger

	redirecting atomic.Bool

	mu       sync.Mutex
	redirect *time.Timer
	reset    *time.Timer
	closed   bool
}

func New(opts Options) *Interceptor {
	if opts.RedirectDelay < 0 {
		opts.RedirectDelay = DefaultRedirectDelay
	}
	if opts.FlagCooldown < 0 {
		opts.FlagCooldown = DefaultFlagCooldown
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Interceptor{
		repo:     opts.Repository,
		router:   opts.Router,
		delay:    opts.RedirectDelay,
		cooldown: opts.FlagCooldown,
		onPurged: opts.OnPurged,
		logger:   opts.Logger.Named("interceptor"),
	}
}

// Observe satisfies gateway.ResponseObserver.
func (i *Interceptor) Observe(req *fasthttp.Request, resp *fasthttp.Response, err error) {
	if err != nil || resp == nil || resp.StatusCode() != fasthttp.StatusUnauthorized {
		return
	}
	if gateway.BearerToken(req) == "" {
		return
	}
	if !i.redirecting.CompareAndSwap(false, true) {
		i.logger.Debug("redirect already in progress", zap.ByteString("path", req.URI().Path()))
		return
	}

	i.logger.Info("session expired", zap.ByteString("path", req.URI().Path()))
	ctx := context.Background()
	privileged := i.classify(ctx)
	i.purge(ctx)

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return
	}
	i.redirect = time.AfterFunc(i.delay, func() { i.navigate(privileged) })
}

// Redirecting reports whether a redirect cycle is in progress.
func (i *Interceptor) Redirecting() bool {
	return i.redirecting.Load()
}

// Close cancels pending redirect and reset tasks.
func (i *Interceptor) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	if i.redirect != nil {
		i.redirect.Stop()
	}
	if i.reset != nil {
		i.reset.Stop()
	}
}

// classify reads the stale token before the purge. Anything unreadable is
// treated as privileged.
func (i *Interceptor) classify(ctx context.Context) bool {
	raw, err := i.repo.Get(ctx, domain.SlotAuthToken)
	if err != nil {
		i.logger.Debug("no persisted token to classify", zap.Error(err))
		return true
	}
	claims, err := token.Decode(raw)
	if err != nil {
		i.logger.Warn("persisted token undecodable", zap.Error(err))
		return true
	}
	return claims.IsAdmin
}

func (i *Interceptor) purge(ctx context.Context) {
	if err := i.repo.Delete(ctx, domain.SlotAuthToken, domain.SlotUser); err != nil {
		i.logger.Warn("purge persisted session", zap.Error(err))
	}
	if i.onPurged != nil {
		i.onPurged(ctx)
	}
}

func (i *Interceptor) navigate(privileged bool) {
	defer i.scheduleReset()

	ctx := context.Background()
	if privileged {
		i.router.Navigate(ctx, navigation.Home(true))
		return
	}
	if i.router.Current().Path == navigation.PathTokenExpired {
		return
	}
	i.router.Navigate(ctx, navigation.Location{Path: navigation.PathTokenExpired})
}

func (i *Interceptor) scheduleReset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.reset != nil {
		i.reset.Stop()
	}
	if i.closed {
		i.redirecting.Store(false)
		return
	}
	i.reset = time.AfterFunc(i.cooldown, func() {
		i.redirecting.Store(false)
		i.logger.Debug("redirect flag cleared")
	})
}
