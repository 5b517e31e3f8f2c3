package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrPrivateAddress is returned for loopback and private ranges, which have no location.
var ErrPrivateAddress = errors.New("geoip: private address")

// Location is the subset of a lookup used to prefill an address.
type Location struct {
	CountryCode string `json:"country_code"`
	City        string `json:"city"`
	PostalCode  string `json:"postal"`
}

// Client resolves an IP against an ipapi.co style endpoint: GET <url>/<ip>/json.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type lookupPayload struct {
	Location
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

func (c *Client) Lookup(ctx context.Context, ip string) (Location, error) {
	if c == nil || c.baseURL == "" {
		return Location{}, errors.New("geoip: endpoint not configured")
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return Location{}, fmt.Errorf("geoip: invalid address %q", ip)
	}
	if parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return Location{}, ErrPrivateAddress
	}

	endpoint, err := url.JoinPath(c.baseURL, parsed.String(), "json")
	if err != nil {
		return Location{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Location{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Location{}, fmt.Errorf("geoip: status %d", resp.StatusCode)
	}

	var payload lookupPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Location{}, fmt.Errorf("geoip: decode: %w", err)
	}
	if payload.Error {
		return Location{}, fmt.Errorf("geoip: %s", payload.Reason)
	}
	loc := payload.Location
	loc.CountryCode = strings.ToUpper(strings.TrimSpace(loc.CountryCode))
	loc.City = strings.TrimSpace(loc.City)
	loc.PostalCode = strings.TrimSpace(loc.PostalCode)
	return loc, nil
}
