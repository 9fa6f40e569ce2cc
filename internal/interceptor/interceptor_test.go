package interceptor

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/fastygo/wishgift/domain"
	"github.com/fastygo/wishgift/internal/navigation"
	"github.com/fastygo/wishgift/internal/stubapi"
	"github.com/fastygo/wishgift/repository"
	boltrepo "github.com/fastygo/wishgift/repository/bolt"
)

type fixture struct {
	repo        repository.SessionRepository
	router      *navigation.Router
	interceptor *Interceptor
	purged      int32
	moves       chan navigation.Location
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := boltrepo.Open(filepath.Join(t.TempDir(), "session.db"), "")
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	f := &fixture{
		repo:   repo,
		router: navigation.New(nil),
		moves:  make(chan navigation.Location, 8),
	}
	f.router.OnChange(func(_, to navigation.Location) { f.moves <- to })
	f.interceptor = New(Options{
		Repository:    repo,
		Router:        f.router,
		RedirectDelay: 5 * time.Millisecond,
		FlagCooldown:  30 * time.Millisecond,
		OnPurged:      func(context.Context) { atomic.AddInt32(&f.purged, 1) },
	})
	t.Cleanup(f.interceptor.Close)
	return f
}

func (f *fixture) persist(t *testing.T, raw string) {
	t.Helper()
	ctx := context.Background()
	if err := f.repo.Set(ctx, domain.SlotAuthToken, raw); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if err := f.repo.Set(ctx, domain.SlotUser, `{"id":"u1"}`); err != nil {
		t.Fatalf("set user: %v", err)
	}
}

func (f *fixture) respond(status int, bearer string) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://api.test/api/groups")
	if bearer != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+bearer)
	}
	resp.SetStatusCode(status)
	f.interceptor.Observe(req, resp, nil)
}

func (f *fixture) expectMove(t *testing.T) navigation.Location {
	t.Helper()
	select {
	case loc := <-f.moves:
		return loc
	case <-time.After(time.Second):
		t.Fatal("expected a navigation")
		return navigation.Location{}
	}
}

func (f *fixture) expectNoMove(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case loc := <-f.moves:
		t.Fatalf("unexpected navigation to %s", loc)
	case <-time.After(within):
	}
}

func (f *fixture) waitCleared(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for f.interceptor.Redirecting() {
		if time.Now().After(deadline) {
			t.Fatal("redirect flag never cleared")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func signed(t *testing.T, isAdmin bool) string {
	t.Helper()
	now := time.Now()
	raw, err := stubapi.Sign([]byte("k"), domain.Claims{
		Subject:   "u1",
		IsAdmin:   isAdmin,
		IssuedAt:  now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

func TestConcurrentUnauthorizedNavigatesOnce(t *testing.T) {
	f := newFixture(t)
	raw := signed(t, true)
	f.persist(t, raw)

	var wg sync.WaitGroup
	for n := 0; n < 2; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.respond(fasthttp.StatusUnauthorized, raw)
		}()
	}
	wg.Wait()

	if loc := f.expectMove(t); loc.String() != "/?expired=true" {
		t.Fatalf("expected home with expired flag, got %s", loc)
	}
	f.expectNoMove(t, 20*time.Millisecond)
	if got := atomic.LoadInt32(&f.purged); got != 1 {
		t.Fatalf("expected one purge, got %d", got)
	}

	ctx := context.Background()
	if _, err := f.repo.Get(ctx, domain.SlotAuthToken); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Fatalf("expected token purged, got %v", err)
	}
	if _, err := f.repo.Get(ctx, domain.SlotUser); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Fatalf("expected user purged, got %v", err)
	}
}

func TestUndecodableTokenIsPrivileged(t *testing.T) {
	f := newFixture(t)
	f.persist(t, "not-a-jwt")

	f.respond(fasthttp.StatusUnauthorized, "not-a-jwt")
	if loc := f.expectMove(t); loc.String() != "/?expired=true" {
		t.Fatalf("expected home with expired flag, got %s", loc)
	}
}

func TestMemberGoesToTokenExpired(t *testing.T) {
	f := newFixture(t)
	raw := signed(t, false)
	f.persist(t, raw)

	f.respond(fasthttp.StatusUnauthorized, raw)
	if loc := f.expectMove(t); loc.Path != navigation.PathTokenExpired {
		t.Fatalf("expected token-expired page, got %s", loc)
	}
}

func TestAlreadyOnTokenExpiredStays(t *testing.T) {
	f := newFixture(t)
	f.router.Navigate(context.Background(), navigation.Location{Path: navigation.PathTokenExpired})
	f.expectMove(t)

	raw := signed(t, false)
	f.persist(t, raw)
	f.respond(fasthttp.StatusUnauthorized, raw)

	f.expectNoMove(t, 30*time.Millisecond)
	f.waitCleared(t)
	if got := atomic.LoadInt32(&f.purged); got != 1 {
		t.Fatalf("expected purge even without navigation, got %d", got)
	}
}

func TestFlagResetsAfterCooldown(t *testing.T) {
	f := newFixture(t)
	raw := signed(t, true)

	f.persist(t, raw)
	f.respond(fasthttp.StatusUnauthorized, raw)
	f.expectMove(t)
	if !f.interceptor.Redirecting() {
		t.Fatal("expected flag to stay set during cooldown")
	}
	f.waitCleared(t)

	f.persist(t, raw)
	f.respond(fasthttp.StatusUnauthorized, raw)
	f.expectMove(t)
	if got := atomic.LoadInt32(&f.purged); got != 2 {
		t.Fatalf("expected a second cycle, got %d purges", got)
	}
}

func TestIgnoresUnrelatedResponses(t *testing.T) {
	f := newFixture(t)
	raw := signed(t, true)
	f.persist(t, raw)

	f.respond(fasthttp.StatusUnauthorized, "")
	f.respond(fasthttp.StatusForbidden, raw)
	f.respond(fasthttp.StatusInternalServerError, raw)
	f.interceptor.Observe(nil, nil, fasthttp.ErrTimeout)

	f.expectNoMove(t, 30*time.Millisecond)
	if f.interceptor.Redirecting() {
		t.Fatal("expected no redirect cycle")
	}
	if _, err := f.repo.Get(context.Background(), domain.SlotAuthToken); err != nil {
		t.Fatalf("expected token kept, got %v", err)
	}
}
