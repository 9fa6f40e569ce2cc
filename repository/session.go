package repository

import "context"

// SessionRepository persists the session record as independent string slots.
// Get returns domain.ErrSlotNotFound for a slot that was never written or was deleted.
type SessionRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
