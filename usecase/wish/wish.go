package wish

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fastygo/wishgift/api/transport"
	"github.com/fastygo/wishgift/domain"
	"github.com/fastygo/wishgift/internal/gateway"
)

// Store caches group wish lists. Reservations on the caller's own wishes are
// never visible: the API blanks them.
type Store struct {
	gateway *gateway.Gateway
	logger  *zap.Logger

	mu         sync.RWMutex
	generation uint64
	wishes     map[string][]domain.Wish
	err        string
}

func New(gw *gateway.Gateway, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		gateway: gw,
		logger:  logger.Named("wishes"),
		wishes:  make(map[string][]domain.Wish),
	}
}

func (s *Store) FetchGroupWishes(ctx context.Context, groupID string) ([]domain.Wish, error) {
	gen := s.snapshot()
	list, err := s.gateway.Current().GetGroupWishes(ctx, groupID)
	if err := s.finish(gen, err, func() { s.wishes[groupID] = list }); err != nil {
		return nil, err
	}
	return append([]domain.Wish(nil), list...), nil
}

func (s *Store) FetchMyWishes(ctx context.Context, groupID string) ([]domain.Wish, error) {
	gen := s.snapshot()
	list, err := s.gateway.Current().GetMyWishes(ctx, groupID)
	if err := s.finish(gen, err, func() {}); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Store) FetchUserWishes(ctx context.Context, groupID, userID string) ([]domain.Wish, error) {
	gen := s.snapshot()
	list, err := s.gateway.Current().GetUserWishes(ctx, groupID, userID)
	if err := s.finish(gen, err, func() {}); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Store) AddWish(ctx context.Context, groupID string, req transport.WishRequest) (*domain.Wish, error) {
	req.GiftName = strings.TrimSpace(req.GiftName)
	if req.GiftName == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "gift name is required")
	}
	gen := s.snapshot()
	w, err := s.gateway.Current().AddWish(ctx, groupID, req)
	if err := s.finish(gen, err, func() {
		if list, ok := s.wishes[groupID]; ok {
			s.wishes[groupID] = append(list, *w)
		}
	}); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Store) UpdateWish(ctx context.Context, groupID, wishID string, req transport.WishRequest) (*domain.Wish, error) {
	gen := s.snapshot()
	w, err := s.gateway.Current().UpdateWish(ctx, groupID, wishID, req)
	if err := s.finish(gen, err, func() { s.replace(groupID, *w) }); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Store) DeleteWish(ctx context.Context, groupID, wishID string) error {
	gen := s.snapshot()
	err := s.gateway.Current().DeleteWish(ctx, groupID, wishID)
	return s.finish(gen, err, func() {
		list := s.wishes[groupID]
		kept := list[:0]
		for _, w := range list {
			if w.ID != wishID {
				kept = append(kept, w)
			}
		}
		if list != nil {
			s.wishes[groupID] = kept
		}
	})
}

func (s *Store) ReserveWish(ctx context.Context, groupID, wishID string) (*domain.Wish, error) {
	gen := s.snapshot()
	w, err := s.gateway.Current().ReserveWish(ctx, groupID, wishID)
	if err := s.finish(gen, err, func() { s.replace(groupID, *w) }); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Store) UnreserveWish(ctx context.Context, groupID, wishID string) (*domain.Wish, error) {
	gen := s.snapshot()
	w, err := s.gateway.Current().UnreserveWish(ctx, groupID, wishID)
	if err := s.finish(gen, err, func() { s.replace(groupID, *w) }); err != nil {
		return nil, err
	}
	return w, nil
}

// Wishes returns the cached list of groupID.
func (s *Store) Wishes(groupID string) []domain.Wish {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Wish(nil), s.wishes[groupID]...)
}

func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.wishes = make(map[string][]domain.Wish)
	s.err = ""
}

func (s *Store) snapshot() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *Store) finish(gen uint64, err error, apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		if err != nil {
			return err
		}
		return domain.ErrNotAuthenticated
	}
	if err != nil {
		s.err = gateway.MessageOf(err, domain.Message(err, "request failed"))
		s.logger.Debug("wish operation failed", zap.Error(err))
		return err
	}
	s.err = ""
	apply()
	return nil
}

// replace must be called with s.mu held.
func (s *Store) replace(groupID string, w domain.Wish) {
	list := s.wishes[groupID]
	for i := range list {
		if list[i].ID == w.ID {
			list[i] = w
		}
	}
}
