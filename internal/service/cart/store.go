package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/observability"
	"storefront/internal/repository/state"
)

var errQuantityTooLarge = domain.NewValidationError("quantity", fmt.Sprintf("at most %d per line", domain.MaxLineQuantity))

// StateKey is the state repository key holding the serialized lines.
const StateKey = "cart"

// Snapshot is an immutable view of the cart handed to listeners.
type Snapshot struct {
	Lines     []domain.LineItem
	Subtotal  int64
	ItemCount int
	LineCount int
}

// Listener is invoked after every mutation, in mutation order. No store lock is
// held while it runs, so it may read the store. A mutation made from a listener
// is delivered after the current notification returns.
type Listener func(Snapshot)

// WishlistAdder receives lines moved out of the cart.
type WishlistAdder interface {
	Add(ctx context.Context, item domain.WishlistItem) bool
}

// Store is one shopper's cart.
type Store struct {
	namespace string
	repo      state.Repository
	logger    *zap.Logger

	mu    sync.Mutex
	lines []domain.LineItem

	queueMu     sync.Mutex
	queue       []Snapshot
	dispatching bool

	listenMu  sync.Mutex
	listeners map[int]Listener
	nextLsn   int

	now   func() time.Time
	newID func() string
}

// New creates an empty store persisting under namespace. Call Hydrate to load saved lines.
func New(namespace string, repo state.Repository, logger *zap.Logger) *Store {
	return &Store{
		namespace: namespace,
		repo:      repo,
		logger:    observability.OrNop(logger).With(zap.String("session", namespace), zap.String("store", "cart")),
		listeners: make(map[int]Listener),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Hydrate replaces in-memory lines with the persisted copy. Malformed data is
// treated as an empty cart; lines with non-positive quantity are dropped.
func (s *Store) Hydrate(ctx context.Context) error {
	raw, err := s.repo.Load(ctx, s.namespace, StateKey)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	var lines []domain.LineItem
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &lines); err != nil {
			s.logger.Warn("discarding malformed persisted cart", zap.Error(err))
			lines = nil
		}
	}

	kept := lines[:0]
	seen := make(map[domain.LineKey]int)
	for _, line := range lines {
		if line.Quantity < 1 || strings.TrimSpace(line.ProductID) == "" {
			continue
		}
		if line.UnitPrice < 0 || line.UnitPrice > domain.MaxUnitPrice {
			continue
		}
		line.Quantity = min(line.Quantity, domain.MaxLineQuantity)
		if idx, ok := seen[line.Key()]; ok {
			kept[idx].Quantity = min(kept[idx].Quantity+line.Quantity, domain.MaxLineQuantity)
			continue
		}
		if line.ID == "" {
			line.ID = s.newID()
		}
		seen[line.Key()] = len(kept)
		kept = append(kept, line)
	}

	s.mu.Lock()
	s.lines = kept
	s.enqueueLocked()
	s.mu.Unlock()
	s.dispatch()
	return nil
}

// AddItem merges into the line with the same product/color/size or appends a new line.
func (s *Store) AddItem(ctx context.Context, in domain.LineInput) (domain.LineItem, error) {
	if strings.TrimSpace(in.ProductID) == "" {
		return domain.LineItem{}, domain.NewValidationError("productId", "required")
	}
	if strings.TrimSpace(in.Size) == "" {
		return domain.LineItem{}, domain.NewValidationError("size", "select a size")
	}
	if in.Quantity < 1 {
		return domain.LineItem{}, domain.NewValidationError("quantity", "must be at least 1")
	}
	if in.Quantity > domain.MaxLineQuantity {
		return domain.LineItem{}, errQuantityTooLarge
	}
	if in.UnitPrice < 0 || in.UnitPrice > domain.MaxUnitPrice {
		return domain.LineItem{}, domain.NewValidationError("unitPrice", fmt.Sprintf("must be between 0 and %d", domain.MaxUnitPrice))
	}

	s.mu.Lock()
	var line domain.LineItem
	merged := false
	for i := range s.lines {
		if s.lines[i].Key() == in.Key() {
			if s.lines[i].Quantity+in.Quantity > domain.MaxLineQuantity {
				s.mu.Unlock()
				return domain.LineItem{}, errQuantityTooLarge
			}
			s.lines[i].Quantity += in.Quantity
			line = s.lines[i]
			merged = true
			break
		}
	}
	if !merged {
		line = domain.LineItem{
			ID:        s.newID(),
			ProductID: in.ProductID,
			Name:      in.Name,
			UnitPrice: in.UnitPrice,
			ImageURL:  in.ImageURL,
			Color:     in.Color,
			Size:      in.Size,
			Quantity:  in.Quantity,
			Badge:     in.Badge,
			AddedAt:   s.now().UTC(),
		}
		s.lines = append(s.lines, line)
	}
	s.commitLocked(ctx)
	return line, nil
}

// RemoveItem deletes the line if present and reports whether it existed.
func (s *Store) RemoveItem(ctx context.Context, lineID string) bool {
	s.mu.Lock()
	idx := s.indexLocked(lineID)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	s.commitLocked(ctx)
	return true
}

// UpdateQuantity sets a line's quantity; quantity <= 0 removes the line.
// Returns domain.ErrNotFound for unknown lines.
func (s *Store) UpdateQuantity(ctx context.Context, lineID string, quantity int) error {
	if quantity > domain.MaxLineQuantity {
		return errQuantityTooLarge
	}
	s.mu.Lock()
	idx := s.indexLocked(lineID)
	if idx < 0 {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	if quantity <= 0 {
		s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	} else {
		s.lines[idx].Quantity = quantity
	}
	s.commitLocked(ctx)
	return nil
}

// Clear empties the cart unconditionally.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.lines = nil
	s.commitLocked(ctx)
}

// RemoveOrdered takes ordered lines out of the cart. Each line's quantity is
// reduced by the ordered quantity, so units added after the snapshot stay.
// Lines removed in the meantime are skipped.
func (s *Store) RemoveOrdered(ctx context.Context, ordered []domain.LineItem) {
	s.mu.Lock()
	for _, o := range ordered {
		idx := s.indexLocked(o.ID)
		if idx < 0 {
			continue
		}
		if s.lines[idx].Quantity <= o.Quantity {
			s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
			continue
		}
		s.lines[idx].Quantity -= o.Quantity
	}
	s.commitLocked(ctx)
}

// MoveToWishlist adds the line's product to the wishlist and removes the line.
func (s *Store) MoveToWishlist(ctx context.Context, lineID string, wishlist WishlistAdder) error {
	line, ok := s.Line(lineID)
	if !ok {
		return domain.ErrNotFound
	}
	wishlist.Add(ctx, domain.WishlistItem{
		ID:       line.ProductID,
		Name:     line.Name,
		Price:    line.UnitPrice,
		ImageURL: line.ImageURL,
		Badge:    line.Badge,
	})
	s.RemoveItem(ctx, lineID)
	return nil
}

func (s *Store) Line(lineID string) (domain.LineItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(lineID)
	if idx < 0 {
		return domain.LineItem{}, false
	}
	return s.lines[idx], true
}

// Lines returns a copy of the current lines in insertion order.
func (s *Store) Lines() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLines(s.lines)
}

// Subtotal is the sum of unit price times quantity over all lines.
func (s *Store) Subtotal() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Subtotal(s.lines)
}

// ItemCount is the total number of units across lines.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return itemCount(s.lines)
}

// LineCount is the number of distinct product/color/size lines.
func (s *Store) LineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn and returns a function that unregisters it.
func (s *Store) Subscribe(fn Listener) func() {
	s.listenMu.Lock()
	id := s.nextLsn
	s.nextLsn++
	s.listeners[id] = fn
	s.listenMu.Unlock()
	return func() {
		s.listenMu.Lock()
		delete(s.listeners, id)
		s.listenMu.Unlock()
	}
}

// commitLocked persists the lines and notifies listeners. It must be called
// with s.mu held and releases it.
func (s *Store) commitLocked(ctx context.Context) {
	s.persistLocked(ctx)
	s.enqueueLocked()
	s.mu.Unlock()
	s.dispatch()
}

// enqueueLocked queues a snapshot; queueing under s.mu fixes mutation order.
func (s *Store) enqueueLocked() {
	snap := s.snapshotLocked()
	s.queueMu.Lock()
	s.queue = append(s.queue, snap)
	s.queueMu.Unlock()
}

func (s *Store) persistLocked(ctx context.Context) {
	lines := s.lines
	if lines == nil {
		lines = []domain.LineItem{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		s.logger.Error("marshal cart", zap.Error(err))
		return
	}
	if err := s.repo.Save(ctx, s.namespace, StateKey, raw); err != nil {
		s.logger.Warn("persist cart failed", zap.Error(err))
	}
}

// dispatch drains the queue unless another goroutine already is. Listeners run
// with no lock held.
func (s *Store) dispatch() {
	s.queueMu.Lock()
	if s.dispatching {
		s.queueMu.Unlock()
		return
	}
	s.dispatching = true
	for len(s.queue) > 0 {
		snap := s.queue[0]
		s.queue = s.queue[1:]
		s.queueMu.Unlock()
		for _, fn := range s.currentListeners() {
			fn(snap)
		}
		s.queueMu.Lock()
	}
	s.dispatching = false
	s.queueMu.Unlock()
}

func (s *Store) currentListeners() []Listener {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	listeners := make([]Listener, 0, len(s.listeners))
	for i := 0; i < s.nextLsn; i++ {
		if fn, ok := s.listeners[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	return listeners
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Lines:     cloneLines(s.lines),
		Subtotal:  domain.Subtotal(s.lines),
		ItemCount: itemCount(s.lines),
		LineCount: len(s.lines),
	}
}

func (s *Store) indexLocked(lineID string) int {
	for i := range s.lines {
		if s.lines[i].ID == lineID {
			return i
		}
	}
	return -1
}

func cloneLines(lines []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, len(lines))
	copy(out, lines)
	return out
}

func itemCount(lines []domain.LineItem) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}
