package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrappedSentinelMatches(t *testing.T) {
	cause := errors.New("status 401")
	err := fmt.Errorf("login: %w", ErrInvalidCreds.Wrap(cause))

	if !errors.Is(err, ErrInvalidCreds) {
		t.Fatal("expected wrapped sentinel to match")
	}
	if errors.Is(err, ErrForbiddenRole) {
		t.Fatal("expected other sentinels not to match")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause reachable")
	}
	if !IsDomainError(err, ErrCodeInvalidCredentials) || Message(err, "") != MsgInvalidCredentials {
		t.Fatalf("unexpected classification of %v", err)
	}
	if errors.Is(NewError(ErrCodeInvalid, "name required"), ErrInvalidPayload) {
		t.Fatal("expected same code with another message not to match")
	}
}
