package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RateSource fetches exchange rates relative to base: 1 base = rate[code] code.
type RateSource interface {
	Fetch(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

// HTTPRateSource reads rates from an open.er-api.com style endpoint: GET <url>/<BASE>.
type HTTPRateSource struct {
	baseURL string
	http    *http.Client
}

func NewHTTPRateSource(baseURL string, timeout time.Duration) *HTTPRateSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPRateSource{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type ratesPayload struct {
	Result    string                     `json:"result"`
	ErrorType string                     `json:"error-type"`
	Rates     map[string]decimal.Decimal `json:"rates"`
}

func (s *HTTPRateSource) Fetch(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	if s.baseURL == "" {
		return nil, errors.New("rates: endpoint not configured")
	}
	endpoint, err := url.JoinPath(s.baseURL, strings.ToUpper(base))
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("rates: unexpected status %d", resp.StatusCode)
	}

	var payload ratesPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("rates: decode: %w", err)
	}
	if payload.Result != "" && payload.Result != "success" {
		return nil, fmt.Errorf("rates: provider error %q", payload.ErrorType)
	}
	if len(payload.Rates) == 0 {
		return nil, errors.New("rates: empty rate table")
	}
	out := make(map[string]decimal.Decimal, len(payload.Rates))
	for code, rate := range payload.Rates {
		if rate.IsPositive() {
			out[strings.ToUpper(code)] = rate
		}
	}
	return out, nil
}
