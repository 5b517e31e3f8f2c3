package currency

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository/state"
)

// PreferenceKey is the shopper state key holding the display currency code.
const PreferenceKey = "currency"

// Converter converts and formats base amounts in one shopper's display currency.
type Converter struct {
	svc       *Service
	namespace string
	repo      state.Repository

	mu   sync.RWMutex
	code string
}

func (s *Service) NewConverter(namespace string, repo state.Repository) *Converter {
	return &Converter{svc: s, namespace: namespace, repo: repo, code: s.Base()}
}

// Hydrate restores the persisted display currency; unknown codes fall back to base.
func (c *Converter) Hydrate(ctx context.Context) error {
	raw, err := c.repo.Load(ctx, c.namespace, PreferenceKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var code string
	if err := json.Unmarshal(raw, &code); err != nil || !c.svc.IsSupported(code) {
		c.svc.logger.Warn("ignoring persisted display currency", zap.String("session", c.namespace), zap.ByteString("value", raw))
		return nil
	}
	c.mu.Lock()
	c.code = strings.ToUpper(code)
	c.mu.Unlock()
	return nil
}

func (c *Converter) Currency() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.code
}

// SetCurrency switches and persists the display currency, refreshing rates
// unless the base currency was chosen.
func (c *Converter) SetCurrency(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !c.svc.IsSupported(code) {
		return domain.NewValidationError("currency", "unsupported currency "+code)
	}
	c.mu.Lock()
	c.code = code
	c.mu.Unlock()

	raw, err := json.Marshal(code)
	if err == nil {
		err = c.repo.Save(ctx, c.namespace, PreferenceKey, raw)
	}
	if err != nil {
		c.svc.logger.Warn("persist display currency failed", zap.String("session", c.namespace), zap.Error(err))
	}
	if code != c.svc.Base() {
		c.svc.Rates(ctx)
	}
	return nil
}

// Convert returns base converted into the display currency, plus the code the
// amount is actually expressed in.
func (c *Converter) Convert(ctx context.Context, base int64) (decimal.Decimal, string) {
	return c.svc.Convert(ctx, base, c.Currency())
}

// Format renders base in the display currency, or in base terms when no rate is known.
func (c *Converter) Format(ctx context.Context, base int64) string {
	amount, code := c.Convert(ctx, base)
	return c.svc.FormatAmount(amount, code)
}
