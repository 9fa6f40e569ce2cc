package gateway_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/fastygo/wishgift/domain"
	"github.com/fastygo/wishgift/internal/gateway"
	"github.com/fastygo/wishgift/internal/stubapi"
	"github.com/fastygo/wishgift/pkg/logger"
)

func newStub(t *testing.T) (*stubapi.Server, *gateway.Gateway) {
	t.Helper()
	stub := stubapi.New(stubapi.Options{Secret: []byte("gateway-test")})
	stub.Start()
	t.Cleanup(func() { _ = stub.Close() })

	gw := gateway.New(gateway.Options{
		BaseURL: stubapi.BaseURL,
		Timeout: 2 * time.Second,
		Dial:    stub.Dial,
	})
	t.Cleanup(gw.Close)
	return stub, gw
}

func TestCurrentIsLazilyUnauthenticated(t *testing.T) {
	_, gw := newStub(t)

	if gw.Authenticated() {
		t.Fatal("expected no client before first use")
	}
	client := gw.Current()
	if client == nil || client.Authenticated() {
		t.Fatalf("expected unauthenticated client, got %+v", client)
	}
	if gw.Current() != client {
		t.Fatal("expected Current to return the same client")
	}
}

func TestConfigureAttachesBearer(t *testing.T) {
	stub, gw := newStub(t)
	admin := stub.SeedUser("alice@example.com", "secret", true)
	stub.SeedGroup(admin.ID, "Family")
	token, err := stub.IssueToken(admin.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	var seen string
	gw.Use(func(req *fasthttp.Request, _ *fasthttp.Response, _ error) {
		seen = gateway.BearerToken(req)
	})

	groups, err := gw.Configure(token).GetGroups(context.Background())
	if err != nil {
		t.Fatalf("get groups: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "Family" {
		t.Fatalf("unexpected groups: %+v", groups)
	}
	if seen != token {
		t.Fatalf("expected bearer %q on request, got %q", token, seen)
	}

	seen = "unset"
	if _, err := gw.Configure("").Login(context.Background(), "alice@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if seen != "" {
		t.Fatalf("expected no bearer after reset, got %q", seen)
	}
}

func TestObserversSurviveReconfiguration(t *testing.T) {
	stub, gw := newStub(t)
	admin := stub.SeedUser("bob@example.com", "secret", true)
	token, _ := stub.IssueToken(admin.ID)

	var calls int32
	gw.Current()
	gw.Use(func(*fasthttp.Request, *fasthttp.Response, error) {
		atomic.AddInt32(&calls, 1)
	})

	ctx := context.Background()
	if _, err := gw.Current().GetGroups(ctx); err == nil {
		t.Fatal("expected 401 without bearer")
	}
	if _, err := gw.Configure(token).GetGroups(ctx); err != nil {
		t.Fatalf("get groups: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected observer on both clients, got %d calls", got)
	}
}

func TestStatusErrorCarriesServerMessage(t *testing.T) {
	stub, gw := newStub(t)
	stub.SeedUser("carol@example.com", "secret", true)

	_, err := gw.Current().Login(context.Background(), "carol@example.com", "wrong")
	if err == nil {
		t.Fatal("expected error")
	}
	if code := gateway.StatusCode(err); code != fasthttp.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if msg := gateway.MessageOf(err, "fallback"); msg != "invalid credentials" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	stub, gw := newStub(t)
	_ = stub.Close()

	var observedErr error
	gw.Use(func(_ *fasthttp.Request, resp *fasthttp.Response, err error) {
		if resp != nil {
			t.Error("expected nil response on transport failure")
		}
		observedErr = err
	})

	_, err := gw.Current().GetUserGroups(context.Background())
	if !domain.IsDomainError(err, domain.ErrCodeNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if domain.Message(err, "") != domain.MsgConnection {
		t.Fatalf("unexpected message %q", domain.Message(err, ""))
	}
	if observedErr == nil {
		t.Fatal("expected observer to see transport error")
	}
	if gateway.StatusCode(err) != 0 {
		t.Fatal("expected no status on transport failure")
	}
}

func TestCanceledContextShortCircuits(t *testing.T) {
	stub, gw := newStub(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := gw.Current().Register(ctx, "dave@example.com", "pw"); !domain.IsDomainError(err, domain.ErrCodeNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if stub.Hits("POST /api/auth/register") != 0 {
		t.Fatal("expected no request to reach the server")
	}
}

func TestAnonymousLeavesLiveClient(t *testing.T) {
	stub, gw := newStub(t)
	stub.SeedUser("erin@example.com", "secret", true)
	admin := stub.SeedUser("frank@example.com", "secret", true)
	token, _ := stub.IssueToken(admin.ID)

	var bearers []string
	gw.Use(func(req *fasthttp.Request, _ *fasthttp.Response, _ error) {
		bearers = append(bearers, gateway.BearerToken(req))
	})
	live := gw.Configure(token)

	anon := gw.Anonymous()
	if anon == live || anon.Authenticated() {
		t.Fatal("expected a separate client without credential")
	}
	if _, err := anon.Login(context.Background(), "erin@example.com", "wrong"); gateway.StatusCode(err) != fasthttp.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
	if len(bearers) != 1 || bearers[0] != "" {
		t.Fatalf("expected observer to see an anonymous request, got %q", bearers)
	}
	if gw.Current() != live || !gw.Authenticated() {
		t.Fatal("expected live client unchanged")
	}
}

func TestContextRequestIDIsForwarded(t *testing.T) {
	stub, gw := newStub(t)
	stub.SeedUser("gail@example.com", "secret", true)

	var seen string
	gw.Use(func(req *fasthttp.Request, _ *fasthttp.Response, _ error) {
		seen = string(req.Header.Peek(gateway.HeaderRequestID))
	})

	ctx := logger.ContextWithRequestID(context.Background(), "cmd-42")
	if _, err := gw.Current().Login(ctx, "gail@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if seen != "cmd-42" {
		t.Fatalf("expected request id from context, got %q", seen)
	}

	if _, err := gw.Current().Login(context.Background(), "gail@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if seen == "" || seen == "cmd-42" {
		t.Fatalf("expected a fresh request id, got %q", seen)
	}
}
