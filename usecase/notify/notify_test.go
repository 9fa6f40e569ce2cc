package notify

import (
	"testing"
	"time"
)

func TestDefaultsAndRemoval(t *testing.T) {
	c := New(nil)
	t.Cleanup(c.Close)

	id := c.Error("boom")
	c.Info("hello")

	list := c.List()
	if len(list) != 2 || list[0].ID != id || list[0].Kind != KindError {
		t.Fatalf("unexpected list %+v", list)
	}
	if list[0].Timeout != 5*time.Second || list[1].Timeout != 3*time.Second {
		t.Fatalf("unexpected timeouts %v %v", list[0].Timeout, list[1].Timeout)
	}

	c.Remove(id)
	if got := c.List(); len(got) != 1 || got[0].Message != "hello" {
		t.Fatalf("unexpected list after remove %+v", got)
	}
	c.Remove("unknown")
}

func TestAutoDismiss(t *testing.T) {
	c := New(nil)
	t.Cleanup(c.Close)

	c.Add(KindWarning, "soon gone", 10*time.Millisecond)
	c.Add(KindInfo, "sticky", -1)

	deadline := time.Now().Add(time.Second)
	for len(c.List()) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected auto-dismiss, still have %+v", c.List())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if c.List()[0].Message != "sticky" {
		t.Fatal("expected sticky notification kept")
	}
}
