package group

import (
	"context"
	"testing"
	"time"

	"github.com/fastygo/wishgift/domain"
	"github.com/fastygo/wishgift/internal/gateway"
	"github.com/fastygo/wishgift/internal/stubapi"
)

type tokenRecorder struct{ tokens []string }

func (r *tokenRecorder) UpdateToken(_ context.Context, raw string) error {
	r.tokens = append(r.tokens, raw)
	return nil
}

func newStore(t *testing.T) (*stubapi.Server, *gateway.Gateway, *Store) {
	t.Helper()
	stub := stubapi.New(stubapi.Options{})
	stub.Start()
	t.Cleanup(func() { _ = stub.Close() })
	gw := gateway.New(gateway.Options{BaseURL: stubapi.BaseURL, Timeout: 2 * time.Second, Dial: stub.Dial})
	t.Cleanup(gw.Close)
	return stub, gw, New(gw, nil)
}

func signIn(t *testing.T, stub *stubapi.Server, gw *gateway.Gateway, userID string) {
	t.Helper()
	raw, err := stub.IssueToken(userID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	gw.Configure(raw)
}

func TestGroupLifecycle(t *testing.T) {
	stub, gw, s := newStore(t)
	admin := stub.SeedUser("admin@x.com", "pw", true)
	signIn(t, stub, gw, admin.ID)
	tokens := &tokenRecorder{}
	s.UseTokens(tokens)
	ctx := context.Background()

	g, err := s.CreateGroup(ctx, "  Family ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.Name != "Family" || g.Type != domain.DefaultGroupType {
		t.Fatalf("unexpected group %+v", g)
	}
	if len(tokens.tokens) != 1 {
		t.Fatal("expected minted token forwarded")
	}

	if _, err := s.UpdateGroup(ctx, g.ID, "Cousins"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := s.Groups(); len(got) != 1 || got[0].Name != "Cousins" {
		t.Fatalf("unexpected cache %+v", got)
	}

	inv, err := s.InviteUser(ctx, g.ID, "kid@x.com")
	if err != nil || inv.Token == "" {
		t.Fatalf("invite: %+v %v", inv, err)
	}
	list, err := s.Invitations(ctx, g.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("invitations: %+v %v", list, err)
	}

	if err := s.DeleteGroup(ctx, g.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(s.Groups()) != 0 {
		t.Fatal("expected group removed from cache")
	}
}

func TestValidation(t *testing.T) {
	stub, _, s := newStore(t)
	ctx := context.Background()

	if _, err := s.CreateGroup(ctx, " "); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
	if _, err := s.InviteUser(ctx, "g1", ""); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
	if stub.Hits("POST /api/groups") != 0 {
		t.Fatal("expected no request")
	}
}

func TestFailureRecordsServerMessage(t *testing.T) {
	stub, gw, s := newStore(t)
	member := stub.SeedUser("kid@x.com", "", false)
	signIn(t, stub, gw, member.ID)

	if _, err := s.CreateGroup(context.Background(), "Mine"); err == nil {
		t.Fatal("expected forbidden")
	}
	if s.Err() != "access denied" || s.Loading() {
		t.Fatalf("unexpected error state %q loading=%v", s.Err(), s.Loading())
	}
}

func TestResetDiscardsLateResults(t *testing.T) {
	_, _, s := newStore(t)

	gen := s.start()
	s.Reset()
	err := s.finish(gen, nil, func() { s.groups = []domain.Group{{ID: "late"}} })
	if err != domain.ErrNotAuthenticated {
		t.Fatalf("expected late result refused, got %v", err)
	}
	if len(s.Groups()) != 0 {
		t.Fatal("late result must not resurrect state")
	}
}

func TestApplyMemberProfile(t *testing.T) {
	_, _, s := newStore(t)
	s.members["g1"] = []domain.GroupMember{{ID: "u1", Email: "a@x.com"}, {ID: "u2", Email: "b@x.com"}}
	s.members["g2"] = []domain.GroupMember{{ID: "u1", Email: "a@x.com"}}

	s.ApplyMemberProfile("u1", domain.StringPtr("av"), domain.StringPtr("Bob"))

	for _, gid := range []string{"g1", "g2"} {
		m := s.Members(gid)[0]
		if m.DisplayName() != "Bob" || m.AvatarID == nil || *m.AvatarID != "av" {
			t.Fatalf("expected profile applied in %s, got %+v", gid, m)
		}
	}
	if s.Members("g1")[1].Pseudo != nil {
		t.Fatal("other members must be untouched")
	}
}
