package currency

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/observability"
	"storefront/internal/repository/state"
)

const (
	// RatesKey is the shared state key for the cached rate table.
	RatesKey = "rates"
	// CacheTTL is how long fetched rates are reused without a network call.
	CacheTTL = time.Hour
	// fetchTimeout bounds a shared fetch, which outlives any single caller's context.
	fetchTimeout = 15 * time.Second
)

type cachedRates struct {
	Rates     map[string]decimal.Decimal `json:"rates"`
	FetchedAt int64                      `json:"fetchedAt"`
}

// Service holds the process-wide rate book and formatting rules.
type Service struct {
	pricing *config.Pricing
	source  RateSource
	repo    state.Repository
	logger  *zap.Logger
	printer *message.Printer
	now     func() time.Time

	group singleflight.Group

	mu     sync.RWMutex
	cache  *cachedRates
	loaded bool
}

func NewService(pricing *config.Pricing, source RateSource, repo state.Repository, logger *zap.Logger) *Service {
	return &Service{
		pricing: pricing,
		source:  source,
		repo:    repo,
		logger:  observability.OrNop(logger).With(zap.String("component", "currency")),
		printer: message.NewPrinter(language.English),
		now:     time.Now,
	}
}

// Base is the store's native currency code.
func (s *Service) Base() string {
	return s.pricing.BaseCurrency
}

// Supported lists the display currency codes.
func (s *Service) Supported() []string {
	out := make([]string, 0, len(s.pricing.Currencies))
	for _, c := range s.pricing.Currencies {
		out = append(out, c.Code)
	}
	return out
}

func (s *Service) IsSupported(code string) bool {
	_, ok := s.pricing.Currency(code)
	return ok
}

// Rates returns the current rate table. A cache younger than CacheTTL is used
// as is; otherwise rates are fetched. On fetch failure the last cache is used
// regardless of age, and with no cache the result is nil.
func (s *Service) Rates(ctx context.Context) map[string]decimal.Decimal {
	cache := s.cached(ctx)
	if cache != nil && s.now().Sub(time.UnixMilli(cache.FetchedAt)) < CacheTTL {
		return cache.Rates
	}

	v, err, _ := s.group.Do("rates", func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		rates, err := s.source.Fetch(ctx, s.Base())
		if err != nil {
			return nil, err
		}
		fresh := &cachedRates{Rates: rates, FetchedAt: s.now().UnixMilli()}
		s.store(ctx, fresh)
		return fresh, nil
	})
	if err != nil {
		s.logger.Warn("exchange rate fetch failed, using fallback", zap.Error(err), zap.Bool("cached", cache != nil))
		if cache != nil {
			return cache.Rates
		}
		return nil
	}
	return v.(*cachedRates).Rates
}

// Rate returns the rate for code. The base currency is always 1.
func (s *Service) Rate(ctx context.Context, code string) (decimal.Decimal, bool) {
	code = strings.ToUpper(code)
	if code == s.Base() {
		return decimal.NewFromInt(1), true
	}
	rate, ok := s.Rates(ctx)[code]
	if !ok || !rate.IsPositive() {
		return decimal.Decimal{}, false
	}
	return rate, true
}

// Convert turns a base amount into code. When the rate is unknown the amount is
// returned unchanged together with the base code.
func (s *Service) Convert(ctx context.Context, base int64, code string) (decimal.Decimal, string) {
	amount := decimal.NewFromInt(base)
	rate, ok := s.Rate(ctx, code)
	if !ok {
		return amount, s.Base()
	}
	return amount.Mul(rate), strings.ToUpper(code)
}

// FormatAmount renders amount in code: the base currency is rounded to whole
// units, others to two decimals, both with thousands grouping.
func (s *Service) FormatAmount(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(code)
	format, ok := s.pricing.Currency(code)
	if !ok {
		format = config.CurrencyFormat{Code: code, Symbol: code, Position: config.SymbolSuffix}
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}

	var digits string
	if code == s.Base() {
		digits = s.printer.Sprintf("%d", amount.Round(0).IntPart())
	} else {
		rounded := amount.Round(2)
		whole := rounded.Truncate(0)
		digits = s.printer.Sprintf("%d", whole.IntPart()) + rounded.Sub(whole).StringFixed(2)[1:]
	}

	if format.Position == config.SymbolSuffix {
		return sign + digits + " " + format.Symbol
	}
	return sign + format.Symbol + digits
}

func (s *Service) cached(ctx context.Context) *cachedRates {
	s.mu.RLock()
	if s.loaded {
		c := s.cache
		s.mu.RUnlock()
		return c
	}
	s.mu.RUnlock()

	var loaded *cachedRates
	raw, err := s.repo.Load(ctx, state.SharedNamespace, RatesKey)
	switch {
	case err == nil:
		var c cachedRates
		if jsonErr := json.Unmarshal(raw, &c); jsonErr != nil || len(c.Rates) == 0 {
			s.logger.Warn("discarding malformed rate cache", zap.Error(jsonErr))
		} else {
			loaded = &c
		}
	case errors.Is(err, domain.ErrNotFound):
	default:
		s.logger.Warn("load rate cache failed", zap.Error(err))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.cache = loaded
		s.loaded = true
	}
	return s.cache
}

func (s *Service) store(ctx context.Context, c *cachedRates) {
	s.mu.Lock()
	s.cache = c
	s.loaded = true
	s.mu.Unlock()

	raw, err := json.Marshal(c)
	if err == nil {
		err = s.repo.Save(ctx, state.SharedNamespace, RatesKey, raw)
	}
	if err != nil {
		s.logger.Warn("persist rate cache failed", zap.Error(err))
	}
}
