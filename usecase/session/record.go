package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/wishgift/domain"
	"github.com/fastygo/wishgift/repository"
)

var (
	errRecordAbsent  = errors.New("persisted session absent")
	errRecordCorrupt = domain.NewError(domain.ErrCodePersistence, "persisted session corrupt")
)

// record mirrors the live session into the two persisted slots.
type record struct {
	repo   repository.SessionRepository
	logger *zap.Logger
}

// absent reports values that must be read as a missing slot, including
// literals left behind by earlier serialization bugs.
func absent(v string) bool {
	switch v {
	case "", "undefined", "null":
		return true
	}
	return false
}

func (r *record) load(ctx context.Context) (string, *domain.User, error) {
	raw, err := r.repo.Get(ctx, domain.SlotAuthToken)
	if err != nil && !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return "", nil, domain.WrapError(domain.ErrCodePersistence, "read token slot", err)
	}
	payload, err := r.repo.Get(ctx, domain.SlotUser)
	if err != nil && !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return "", nil, domain.WrapError(domain.ErrCodePersistence, "read user slot", err)
	}
	if absent(raw) || absent(payload) {
		return "", nil, errRecordAbsent
	}

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()
	var user domain.User
	if err := dec.Decode(&user); err != nil {
		return "", nil, domain.WrapError(domain.ErrCodePersistence, errRecordCorrupt.Message, err)
	}
	if user.ID == "" {
		return "", nil, errRecordCorrupt
	}
	return raw, &user, nil
}

func (r *record) save(ctx context.Context, token string, user *domain.User) error {
	if err := r.repo.Set(ctx, domain.SlotAuthToken, token); err != nil {
		return domain.WrapError(domain.ErrCodePersistence, "write token slot", err)
	}
	return r.saveUser(ctx, user)
}

func (r *record) saveUser(ctx context.Context, user *domain.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return domain.WrapError(domain.ErrCodePersistence, "encode user", err)
	}
	if err := r.repo.Set(ctx, domain.SlotUser, string(payload)); err != nil {
		return domain.WrapError(domain.ErrCodePersistence, "write user slot", err)
	}
	return nil
}

func (r *record) purge(ctx context.Context) error {
	if err := r.repo.Delete(ctx, domain.SlotAuthToken, domain.SlotUser); err != nil {
		r.logger.Warn("purge persisted session", zap.Error(err))
		return domain.WrapError(domain.ErrCodePersistence, "purge session", err)
	}
	return nil
}
