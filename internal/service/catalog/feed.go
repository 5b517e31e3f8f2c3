package catalog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront/internal/observability"
	"storefront/internal/storeapi"
)

const (
	DefaultDebounce     = 500 * time.Millisecond
	defaultFetchTimeout = 10 * time.Second
)

// Lister fetches one page of products.
type Lister interface {
	ListProducts(ctx context.Context, q storeapi.ProductQuery) (storeapi.ProductPage, error)
}

// Result is the outcome of the most recent current fetch.
type Result struct {
	Generation uint64                `json:"generation"`
	Query      storeapi.ProductQuery `json:"query"`
	Page       storeapi.ProductPage  `json:"page"`
	Error      string                `json:"error,omitempty"`
	FetchedAt  time.Time             `json:"fetchedAt"`
}

// Feed debounces filter changes into product fetches. Every Update bumps a
// generation; a fetch result is kept only if its generation is still current.
type Feed struct {
	lister  Lister
	delay   time.Duration
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	latest  *Result
	pending bool
	closed  bool
}

func NewFeed(lister Lister, delay, timeout time.Duration, logger *zap.Logger) *Feed {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Feed{
		lister:  lister,
		delay:   delay,
		timeout: timeout,
		logger:  observability.OrNop(logger).With(zap.String("component", "catalog_feed")),
	}
}

// Update schedules a fetch for q after the debounce delay, superseding any
// scheduled or in-flight fetch. It returns the new generation.
func (f *Feed) Update(q storeapi.ProductQuery) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return f.gen
	}
	f.gen++
	gen := f.gen
	f.stopLocked()
	f.pending = true
	f.timer = time.AfterFunc(f.delay, func() { f.fetch(gen, q) })
	return gen
}

func (f *Feed) fetch(gen uint64, q storeapi.ProductQuery) {
	f.mu.Lock()
	if f.closed || gen != f.gen {
		f.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	f.cancel = cancel
	f.mu.Unlock()

	page, err := f.lister.ListProducts(ctx, q)
	cancel()

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen || f.closed {
		f.logger.Debug("discarding stale catalog result", zap.Uint64("generation", gen), zap.Uint64("current", f.gen))
		return
	}
	res := &Result{Generation: gen, Query: q, Page: page, FetchedAt: time.Now()}
	if err != nil {
		f.logger.Warn("catalog fetch failed", zap.Uint64("generation", gen), zap.Error(err))
		res.Page = storeapi.ProductPage{}
		res.Error = err.Error()
	}
	f.latest = res
	f.pending = false
	f.cancel = nil
}

// Latest returns the newest accepted result. pending reports whether a newer
// fetch is scheduled or running.
func (f *Feed) Latest() (res Result, ok bool, pending bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latest == nil {
		return Result{}, false, f.pending
	}
	return *f.latest, true, f.pending
}

// Close stops any scheduled or in-flight fetch. Later updates are ignored.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.stopLocked()
	f.pending = false
}

func (f *Feed) stopLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}
