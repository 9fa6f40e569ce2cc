// Package gateway holds the single shared API client. The live client carries
// the current bearer credential; reconfiguring replaces it atomically and
// re-attaches every registered response observer.
package gateway

import (
	"net"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// ResponseObserver is invoked after every exchange with the request and either
// the response or the transport error. resp is nil when err is non-nil. Both
// values are released once the observer returns and must not be retained.
type ResponseObserver func(req *fasthttp.Request, resp *fasthttp.Response, err error)

// Options configures the transport shared by every client the gateway builds.
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	MaxConns int
	// Dial overrides connection setup, e.g. to reach an in-memory listener.
	Dial   func(addr string) (net.Conn, error)
	Logger *zap.Logger
}

// Gateway owns the live Client. It is constructed once per process.
type Gateway struct {
	baseURL   string
	timeout   time.Duration
	transport *fasthttp.Client
	logger    *zap.Logger

	mu        sync.RWMutex
	observers []ResponseObserver
	current   *Client
}

func New(opts Options) *Gateway {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MaxConns <= 0 {
		opts.MaxConns = 16
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	transport := &fasthttp.Client{
		Name:            "wishgift-client",
		MaxConnsPerHost: opts.MaxConns,
		ReadTimeout:     opts.Timeout,
		WriteTimeout:    opts.Timeout,
	}
	if opts.Dial != nil {
		dial := opts.Dial
		transport.Dial = func(addr string) (net.Conn, error) {
			return dial(addr)
		}
	}

	return &Gateway{
		baseURL:   opts.BaseURL,
		timeout:   opts.Timeout,
		transport: transport,
		logger:    opts.Logger,
	}
}

// Use registers an observer. It is attached to the live client immediately and
// to every client built by later Configure calls.
func (g *Gateway) Use(observer ResponseObserver) {
	if observer == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observers = append(g.observers, observer)
	if g.current != nil {
		g.current = g.build(g.current.token)
	}
}

// Configure replaces the live client with one carrying token. An empty token
// yields an unauthenticated client.
func (g *Gateway) Configure(token string) *Client {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = g.build(token)
	g.logger.Debug("api client configured", zap.Bool("authenticated", token != ""))
	return g.current
}

// Current returns the live client, configuring an unauthenticated one on first use.
func (g *Gateway) Current() *Client {
	g.mu.RLock()
	current := g.current
	g.mu.RUnlock()
	if current != nil {
		return current
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		g.current = g.build("")
	}
	return g.current
}

// Anonymous returns a client without credential for the sign-in endpoints.
// The live client is left in place, so a rejected attempt never touches the
// current session.
func (g *Gateway) Anonymous() *Client {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.build("")
}

// Authenticated reports whether the live client carries a credential.
func (g *Gateway) Authenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current != nil && g.current.token != ""
}

// Close releases idle transport connections.
func (g *Gateway) Close() {
	g.transport.CloseIdleConnections()
}

// build must be called with g.mu held.
func (g *Gateway) build(token string) *Client {
	observers := make([]ResponseObserver, len(g.observers))
	copy(observers, g.observers)
	return &Client{
		baseURL:   g.baseURL,
		token:     token,
		timeout:   g.timeout,
		transport: g.transport,
		observers: observers,
		logger:    g.logger,
	}
}
