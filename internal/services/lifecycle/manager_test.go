package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestCloseRunsInReverseOnce(t *testing.T) {
	m := New(time.Second, nil)
	var order []string
	m.Register("store", func(context.Context) error { order = append(order, "store"); return nil })
	m.Register("gateway", func(context.Context) error { order = append(order, "gateway"); return errors.New("boom") })
	m.Register("watcher", func(context.Context) error { order = append(order, "watcher"); return nil })
	m.Register("nil", nil)

	if err := m.Close(context.Background()); err == nil {
		t.Fatal("expected joined error")
	}
	if want := []string{"watcher", "gateway", "store"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("unexpected order %v", order)
	}
	if err := m.Close(context.Background()); err != nil || len(order) != 3 {
		t.Fatalf("expected second close to be a no-op, got %v %v", err, order)
	}
}

func TestCloseHonorsTimeout(t *testing.T) {
	m := New(10*time.Millisecond, nil)
	m.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err := m.Close(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}
