package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/wishgift/domain"
)

func newSessionRepoTest(t *testing.T, ttl time.Duration) (*sessionRepository, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	repo := NewSessionRepository(rdb, "", ttl).(*sessionRepository)
	return repo, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestRedisSessionRepositoryRoundTrip(t *testing.T) {
	repo, mr, done := newSessionRepoTest(t, 0)
	defer done()
	ctx := context.Background()

	if _, err := repo.Get(ctx, domain.SlotUser); !errors.Is(err, domain.ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound, got %v", err)
	}

	if err := repo.Set(ctx, domain.SlotAuthToken, "tok"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if !mr.Exists("wishgift:session:auth_token") {
		t.Fatalf("expected prefixed key in redis, keys=%v", mr.Keys())
	}
	if ttl := mr.TTL("wishgift:session:auth_token"); ttl != 0 {
		t.Fatalf("expected no expiry with zero ttl, got %v", ttl)
	}

	got, err := repo.Get(ctx, domain.SlotAuthToken)
	if err != nil || got != "tok" {
		t.Fatalf("expected tok, got %q (%v)", got, err)
	}

	if err := repo.Delete(ctx, domain.SlotAuthToken, domain.SlotUser); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, domain.SlotAuthToken); !errors.Is(err, domain.ErrSlotNotFound) {
		t.Fatalf("expected slot removed, got %v", err)
	}
}

func TestRedisSessionRepositoryAppliesTTL(t *testing.T) {
	repo, mr, done := newSessionRepoTest(t, time.Hour)
	defer done()
	ctx := context.Background()

	if err := repo.Set(ctx, domain.SlotUser, "{}"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if ttl := mr.TTL("wishgift:session:user"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := repo.Get(ctx, domain.SlotUser); !errors.Is(err, domain.ErrSlotNotFound) {
		t.Fatalf("expected slot to expire, got %v", err)
	}
}
