package wish

import (
	"context"
	"testing"
	"time"

	"github.com/fastygo/wishgift/api/transport"
	"github.com/fastygo/wishgift/domain"
	"github.com/fastygo/wishgift/internal/gateway"
	"github.com/fastygo/wishgift/internal/stubapi"
)

func TestReservationFlow(t *testing.T) {
	stub := stubapi.New(stubapi.Options{})
	stub.Start()
	t.Cleanup(func() { _ = stub.Close() })

	admin := stub.SeedUser("admin@x.com", "pw", true)
	kid := stub.SeedUser("kid@x.com", "", false)
	g := stub.SeedGroup(admin.ID, "Family")
	stub.SeedMembership(g.ID, kid.ID)

	gw := gateway.New(gateway.Options{BaseURL: stubapi.BaseURL, Timeout: 2 * time.Second, Dial: stub.Dial})
	t.Cleanup(gw.Close)
	s := New(gw, nil)
	ctx := context.Background()

	as := func(userID string) {
		raw, err := stub.IssueToken(userID)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		gw.Configure(raw)
	}

	as(kid.ID)
	if _, err := s.FetchGroupWishes(ctx, g.ID); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	w, err := s.AddWish(ctx, g.ID, transport.WishRequest{GiftName: " Bike ", Price: func() *float64 { v := 120.0; return &v }()})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(s.Wishes(g.ID)) != 1 {
		t.Fatal("expected added wish cached")
	}

	if _, err := s.ReserveWish(ctx, g.ID, w.ID); err == nil {
		t.Fatal("owner must not reserve own wish")
	}

	as(admin.ID)
	reserved, err := s.ReserveWish(ctx, g.ID, w.ID)
	if err != nil || !reserved.IsReserved() {
		t.Fatalf("reserve: %+v %v", reserved, err)
	}

	as(kid.ID)
	mine, err := s.FetchMyWishes(ctx, g.ID)
	if err != nil || len(mine) != 1 {
		t.Fatalf("my wishes: %+v %v", mine, err)
	}
	if mine[0].IsReserved() {
		t.Fatal("owner must not see the reservation")
	}

	as(admin.ID)
	theirs, err := s.FetchUserWishes(ctx, g.ID, kid.ID)
	if err != nil || len(theirs) != 1 || !theirs[0].IsReserved() {
		t.Fatalf("user wishes: %+v %v", theirs, err)
	}
	if _, err := s.UnreserveWish(ctx, g.ID, w.ID); err != nil {
		t.Fatalf("unreserve: %v", err)
	}

	as(kid.ID)
	if _, err := s.UpdateWish(ctx, g.ID, w.ID, transport.WishRequest{GiftName: "Red bike"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.DeleteWish(ctx, g.ID, w.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(s.Wishes(g.ID)) != 0 {
		t.Fatal("expected wish removed from cache")
	}
}

func TestResetDropsCache(t *testing.T) {
	s := New(gateway.New(gateway.Options{BaseURL: stubapi.BaseURL}), nil)
	s.wishes["g1"] = []domain.Wish{{ID: "w1"}}
	gen := s.snapshot()

	s.Reset()
	if len(s.Wishes("g1")) != 0 {
		t.Fatal("expected cache cleared")
	}
	if err := s.finish(gen, nil, func() { s.wishes["g1"] = []domain.Wish{{ID: "late"}} }); err != domain.ErrNotAuthenticated {
		t.Fatalf("expected late result refused, got %v", err)
	}
	if len(s.Wishes("g1")) != 0 {
		t.Fatal("late result must not resurrect state")
	}
}

func TestAddWishRequiresName(t *testing.T) {
	s := New(gateway.New(gateway.Options{BaseURL: stubapi.BaseURL}), nil)
	if _, err := s.AddWish(context.Background(), "g1", transport.WishRequest{}); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
}
