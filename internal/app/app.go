// Package app builds the application context: the single set of stateful
// components a client process works with. It is constructed once at start and
// torn down only by Close at process exit.
package app

import (
	"context"
	"net"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/wishgift/internal/config"
	"github.com/fastygo/wishgift/internal/gateway"
	"github.com/fastygo/wishgift/internal/infrastructure/store"
	"github.com/fastygo/wishgift/internal/interceptor"
	"github.com/fastygo/wishgift/internal/navigation"
	"github.com/fastygo/wishgift/internal/services"
	"github.com/fastygo/wishgift/internal/services/lifecycle"
	"github.com/fastygo/wishgift/repository"
	"github.com/fastygo/wishgift/usecase/group"
	"github.com/fastygo/wishgift/usecase/notify"
	"github.com/fastygo/wishgift/usecase/session"
	"github.com/fastygo/wishgift/usecase/wish"
)

type App struct {
	Config        *config.Config
	Logger        *zap.Logger
	Repository    repository.SessionRepository
	Gateway       *gateway.Gateway
	Router        *navigation.Router
	Interceptor   *interceptor.Interceptor
	Session       *session.Manager
	Groups        *group.Store
	Wishes        *wish.Store
	Notifications *notify.Center
	Lifecycle     *lifecycle.Manager
}

type options struct {
	repo repository.SessionRepository
	dial func(addr string) (net.Conn, error)
}

type Option func(*options)

// WithRepository uses repo instead of opening the configured store.
func WithRepository(repo repository.SessionRepository) Option {
	return func(o *options) { o.repo = repo }
}

// WithDial routes API connections through dial.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(o *options) { o.dial = dial }
}

// New wires the components in dependency order: store, gateway, interceptor,
// router, dependent state, session.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Lifecycle: lifecycle.New(cfg.Shutdown, logger),
	}

	repo := o.repo
	if repo == nil {
		var err error
		repo, err = store.Open(ctx, cfg.Store, logger)
		if err != nil {
			return nil, err
		}
	}
	a.Repository = repo
	a.Lifecycle.Register("session_store", func(context.Context) error { return repo.Close() })

	a.Gateway = gateway.New(gateway.Options{
		BaseURL:  cfg.API.BaseURL,
		Timeout:  cfg.API.RequestTimeout,
		MaxConns: cfg.API.MaxConns,
		Dial:     o.dial,
		Logger:   logger.Named("api"),
	})
	a.Lifecycle.Register("gateway", func(context.Context) error {
		a.Gateway.Close()
		return nil
	})

	a.Router = navigation.New(logger.Named("navigation"))
	a.Interceptor = interceptor.New(interceptor.Options{
		Repository:    repo,
		Router:        a.Router,
		RedirectDelay: cfg.Session.RedirectDelay,
		FlagCooldown:  cfg.Session.RedirectCooldown,
		OnPurged:      a.onSessionExpired,
		Logger:        logger,
	})
	a.Gateway.Use(a.Interceptor.Observe)
	a.Lifecycle.Register("interceptor", func(context.Context) error {
		a.Interceptor.Close()
		return nil
	})

	a.Groups = group.New(a.Gateway, logger)
	a.Wishes = wish.New(a.Gateway, logger)
	a.Notifications = notify.New(logger)
	a.Lifecycle.Register("notifications", func(context.Context) error {
		a.Notifications.Close()
		return nil
	})

	a.Session = session.New(session.Options{Repository: repo, Gateway: a.Gateway, Logger: logger})
	a.Session.Attach(a.Groups, a.Wishes)
	a.Groups.UseTokens(a.Session)

	a.Router.BeforeEach(a.requireSession)
	return a, nil
}

// NewExpiryWatcher schedules expiry checks of the live token. The watcher is
// stopped by Close.
func (a *App) NewExpiryWatcher() (*services.ExpiryWatcher, error) {
	w, err := services.NewExpiryWatcher(a.Session, a.Router, a.Logger, services.WatcherConfig{
		Interval: a.Config.Session.ExpiryCheckInterval,
	})
	if err != nil {
		return nil, err
	}
	a.Lifecycle.Register("expiry_watcher", func(ctx context.Context) error {
		w.Stop(ctx)
		return nil
	})
	return w, nil
}

// Close releases every component in reverse construction order.
func (a *App) Close(ctx context.Context) error {
	return a.Lifecycle.Close(ctx)
}

func (a *App) onSessionExpired(ctx context.Context) {
	if err := a.Session.Logout(ctx); err != nil {
		a.Logger.Warn("logout after expiry", zap.Error(err))
	}
	a.Notifications.Warning("your session has expired, please sign in again")
}

// requireSession sends anonymous callers of private locations home.
func (a *App) requireSession(_ context.Context, _, to navigation.Location) (navigation.Location, bool) {
	if public(to.Path) || a.Session.IsAuthenticated() {
		return to, true
	}
	return navigation.Home(false), true
}

func public(path string) bool {
	switch path {
	case navigation.PathHome, navigation.PathLogin, "/register", navigation.PathTokenExpired:
		return true
	}
	return strings.HasPrefix(path, "/invite/")
}
