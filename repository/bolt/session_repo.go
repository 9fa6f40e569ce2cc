package bolt

import (
	"context"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/wishgift/domain"
	"github.com/fastygo/wishgift/repository"
)

const defaultBucket = "session"

type sessionRepository struct {
	db     *bolt.DB
	bucket []byte
}

// Open initializes the BoltDB file and ensures the session bucket exists.
func Open(path string, bucket string) (repository.SessionRepository, error) {
	if bucket == "" {
		bucket = defaultBucket
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &sessionRepository{
		db:     db,
		bucket: []byte(bucket),
	}, nil
}

func (r *sessionRepository) Get(ctx context.Context, key string) (string, error) {
	if r == nil || r.db == nil {
		return "", bolt.ErrDatabaseNotOpen
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		value string
		found bool
	)
	err := r.db.View(func(tx *bolt.Tx) error {
		if raw := tx.Bucket(r.bucket).Get([]byte(key)); raw != nil {
			value = string(raw)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", domain.ErrSlotNotFound
	}
	return value, nil
}

func (r *sessionRepository) Set(ctx context.Context, key, value string) error {
	if r == nil || r.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(r.bucket).Put([]byte(key), []byte(value))
	})
}

// Delete removes the given slots in one transaction. Missing slots are not an error.
func (r *sessionRepository) Delete(ctx context.Context, keys ...string) error {
	if r == nil || r.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(r.bucket)
		for _, key := range keys {
			if err := b.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the Bolt database.
func (r *sessionRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
