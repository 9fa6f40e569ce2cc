// Package navigation tracks the client's current location and applies route
// guards before every move.
package navigation

import (
	"context"
	"net/url"
	"sync"

	"go.uber.org/zap"
)

// Well-known locations.
const (
	PathHome         = "/"
	PathLogin        = "/login"
	PathTokenExpired = "/token-expired"
	PathGroups       = "/groups"
)

// Location is a path plus query parameters.
type Location struct {
	Path  string
	Query url.Values
}

func (l Location) String() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}

// Home returns the home location, optionally flagged as reached after expiry.
func Home(expired bool) Location {
	loc := Location{Path: PathHome}
	if expired {
		loc.Query = url.Values{"expired": []string{"true"}}
	}
	return loc
}

// Guard may redirect a navigation by returning a different location.
// Returning ok=false cancels it.
type Guard func(ctx context.Context, from, to Location) (Location, bool)

// Listener observes completed navigations.
type Listener func(from, to Location)

// Router serializes navigations. It is safe for concurrent use.
type Router struct {
	logger *zap.Logger

	mu        sync.Mutex
	current   Location
	guards    []Guard
	listeners []Listener
}

func New(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{logger: logger, current: Location{Path: PathHome}}
}

// BeforeEach registers a guard. The token-expired page bypasses guards.
func (r *Router) BeforeEach(g Guard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guards = append(r.guards, g)
}

func (r *Router) OnChange(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

func (r *Router) Current() Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Navigate moves to loc after running guards and reports where it landed.
func (r *Router) Navigate(ctx context.Context, loc Location) (Location, bool) {
	r.mu.Lock()
	from := r.current
	guards := append([]Guard(nil), r.guards...)
	r.mu.Unlock()

	to := loc
	if to.Path != PathTokenExpired {
		for _, g := range guards {
			next, ok := g(ctx, from, to)
			if !ok {
				r.logger.Debug("navigation cancelled", zap.String("to", loc.String()))
				return from, false
			}
			to = next
		}
	}

	r.mu.Lock()
	from = r.current
	r.current = to
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	r.logger.Info("navigated", zap.String("from", from.String()), zap.String("to", to.String()))
	for _, l := range listeners {
		l(from, to)
	}
	return to, true
}
