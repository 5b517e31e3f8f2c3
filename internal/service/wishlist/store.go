package wishlist

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/observability"
	"storefront/internal/repository/state"
)

const StateKey = "wishlist"

// Store is a deduplicated, persisted set of liked products.
type Store struct {
	namespace string
	repo      state.Repository
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	items     []domain.WishlistItem
	listeners []func([]domain.WishlistItem)
}

func New(namespace string, repo state.Repository, logger *zap.Logger) *Store {
	return &Store{
		namespace: namespace,
		repo:      repo,
		logger:    observability.OrNop(logger).With(zap.String("session", namespace), zap.String("store", "wishlist")),
		now:       time.Now,
	}
}

// Hydrate loads the persisted wishlist and notifies subscribers; malformed data
// yields an empty list.
func (s *Store) Hydrate(ctx context.Context) error {
	raw, err := s.repo.Load(ctx, s.namespace, StateKey)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	var items []domain.WishlistItem
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			s.logger.Warn("discarding malformed persisted wishlist", zap.Error(err))
			items = nil
		}
	}
	seen := make(map[string]bool, len(items))
	kept := items[:0]
	for _, it := range items {
		if it.ID == "" || seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		kept = append(kept, it)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = kept
	s.notifyLocked()
	return nil
}

// Add inserts item unless its id is already present. Returns true when added.
func (s *Store) Add(ctx context.Context, item domain.WishlistItem) bool {
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(item.ID) >= 0 {
		return false
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = s.now().UTC()
	}
	s.items = append(s.items, item)
	s.commitLocked(ctx)
	return true
}

// Remove deletes the item with id; absent ids are a no-op.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return false
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.commitLocked(ctx)
	return true
}

func (s *Store) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(id) >= 0
}

func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.commitLocked(ctx)
}

func (s *Store) Items() []domain.WishlistItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.WishlistItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Subscribe registers fn to receive the item list after each mutation.
// fn runs with the store locked and must not call back into it.
func (s *Store) Subscribe(fn func([]domain.WishlistItem)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) commitLocked(ctx context.Context) {
	items := s.items
	if items == nil {
		items = []domain.WishlistItem{}
	}
	raw, err := json.Marshal(items)
	if err == nil {
		err = s.repo.Save(ctx, s.namespace, StateKey, raw)
	}
	if err != nil {
		s.logger.Warn("persist wishlist failed", zap.Error(err))
	}
	s.notifyLocked()
}

func (s *Store) notifyLocked() {
	for _, fn := range s.listeners {
		snapshot := make([]domain.WishlistItem, len(s.items))
		copy(snapshot, s.items)
		fn(snapshot)
	}
}

func (s *Store) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
