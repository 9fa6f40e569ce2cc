package stubapi

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/wishgift/api/transport"
	"github.com/fastygo/wishgift/domain"
)

func TestSignOmitsNilGroups(t *testing.T) {
	now := time.Now()
	raw, err := Sign([]byte("k"), domain.Claims{Subject: "u1", IssuedAt: now, ExpiresAt: now.Add(time.Hour)})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := claims["groupIds"]; ok {
		t.Fatal("expected groupIds to be omitted")
	}
	if claims["sub"] != "u1" || claims["isAdmin"] != false {
		t.Fatalf("unexpected claims: %v", claims)
	}
}

func TestAuthenticateRejectsForeignSignature(t *testing.T) {
	s := New(Options{Secret: []byte("right")})
	member := s.SeedUser("a@example.com", "pw", true)
	now := time.Now()
	forged, _ := Sign([]byte("wrong"), domain.Claims{Subject: member.ID, IsAdmin: true, IssuedAt: now, ExpiresAt: now.Add(time.Hour)})

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI("/api/groups")
	ctx.Request.Header.Set("Authorization", "Bearer "+forged)
	s.Handler()(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", ctx.Response.StatusCode())
	}
	var body transport.ErrorResponse
	if err := json.Unmarshal(ctx.Response.Body(), &body); err != nil || body.Message == "" {
		t.Fatalf("expected error body, got %s", ctx.Response.Body())
	}
	if s.Hits("GET /api/groups") != 1 {
		t.Fatalf("expected hit to be counted")
	}
}

func TestForcedStatus(t *testing.T) {
	s := New(Options{})
	s.Force("POST /api/auth/login", fasthttp.StatusServiceUnavailable)

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.SetRequestURI("/api/auth/login")
	s.Handler()(ctx)
	if ctx.Response.StatusCode() != fasthttp.StatusServiceUnavailable {
		t.Fatalf("expected forced status, got %d", ctx.Response.StatusCode())
	}

	s.Unforce("POST /api/auth/login")
	ctx.Response.Reset()
	s.Handler()(ctx)
	if ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
		t.Fatalf("expected 400 for empty body, got %d", ctx.Response.StatusCode())
	}
}

func TestInvitationTokenCarriesGroup(t *testing.T) {
	s := New(Options{})
	admin := s.SeedUser("admin@example.com", "pw", true)
	g := s.SeedGroup(admin.ID, "Noël")
	invite := s.SeedInvitation(g.ID, "guest@example.com")

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI("/api/invite/" + invite)
	s.Handler()(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	var resp transport.InvitationResponse
	if err := json.Unmarshal(ctx.Response.Body(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Accepted || resp.JWTToken == nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(*resp.JWTToken, claims); err != nil {
		t.Fatalf("parse: %v", err)
	}
	ids, _ := claims["groupIds"].([]interface{})
	if len(ids) != 1 || ids[0] != g.ID {
		t.Fatalf("expected groupIds [%s], got %v", g.ID, claims["groupIds"])
	}
}
