package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront/internal/domain"
)

const (
	defaultTimeout    = 10 * time.Second
	idempotencyHeader = "Idempotency-Key"
	maxErrorBody      = 4 << 10
)

// ErrNotConfigured is returned when no API origin was configured.
var ErrNotConfigured = errors.New("storeapi: base url not configured")

// APIError carries a failed authoritative call's server message verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("store api: status %d", e.Status)
	}
	return e.Message
}

// Client talks to the remote storefront REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// OrderResult is the data returned for an accepted order.
type OrderResult struct {
	OrderNumber string `json:"orderNumber"`
	ID          string `json:"_id,omitempty"`
	Status      string `json:"status,omitempty"`
	Message     string `json:"-"`
}

// CreateOrder submits draft. idempotencyKey identifies this attempt.
func (c *Client) CreateOrder(ctx context.Context, token, idempotencyKey string, draft domain.OrderDraft) (OrderResult, error) {
	payload, err := json.Marshal(draft)
	if err != nil {
		return OrderResult{}, err
	}
	var out OrderResult
	msg, err := c.do(ctx, http.MethodPost, []string{"orders"}, nil, token, idempotencyKey, payload, &out)
	if err != nil {
		return OrderResult{}, err
	}
	out.Message = msg
	return out, nil
}

// Product is the catalog projection the storefront needs.
type Product struct {
	ID       string   `json:"_id"`
	Name     string   `json:"name"`
	Price    int64    `json:"price"`
	Images   []string `json:"images,omitempty"`
	Colors   []string `json:"colors,omitempty"`
	Sizes    []string `json:"sizes,omitempty"`
	Category string   `json:"category,omitempty"`
	Badge    string   `json:"badge,omitempty"`
	InStock  bool     `json:"inStock"`
}

// ProductQuery filters the product listing. Zero values are omitted.
type ProductQuery struct {
	Search   string `json:"search,omitempty" form:"search"`
	Category string `json:"category,omitempty" form:"category"`
	MinPrice int64  `json:"minPrice,omitempty" form:"minPrice"`
	MaxPrice int64  `json:"maxPrice,omitempty" form:"maxPrice"`
	Sort     string `json:"sort,omitempty" form:"sort"`
	Page     int    `json:"page,omitempty" form:"page"`
	Limit    int    `json:"limit,omitempty" form:"limit"`
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	set := func(k, s string) {
		if s = strings.TrimSpace(s); s != "" {
			v.Set(k, s)
		}
	}
	set("search", q.Search)
	set("category", q.Category)
	set("sort", q.Sort)
	if q.MinPrice > 0 {
		v.Set("minPrice", strconv.FormatInt(q.MinPrice, 10))
	}
	if q.MaxPrice > 0 {
		v.Set("maxPrice", strconv.FormatInt(q.MaxPrice, 10))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Pages    int       `json:"pages"`
}

func (c *Client) ListProducts(ctx context.Context, q ProductQuery) (ProductPage, error) {
	var out ProductPage
	_, err := c.do(ctx, http.MethodGet, []string{"products"}, q.values(), "", "", nil, &out)
	return out, err
}

func (c *Client) GetProduct(ctx context.Context, id string) (Product, error) {
	if strings.TrimSpace(id) == "" {
		return Product{}, domain.ErrNotFound
	}
	var out Product
	_, err := c.do(ctx, http.MethodGet, []string{"products", id}, nil, "", "", nil, &out)
	return out, err
}

type Category struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	_, err := c.do(ctx, http.MethodGet, []string{"categories"}, nil, "", "", nil, &out)
	return out, err
}

// Profile is the authenticated shopper's stored contact data.
type Profile struct {
	ID         string `json:"_id"`
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Country    string `json:"country"`
	City       string `json:"city"`
	Address    string `json:"address"`
	PostalCode string `json:"postalCode"`
}

func (c *Client) GetProfile(ctx context.Context, token string) (Profile, error) {
	var out Profile
	_, err := c.do(ctx, http.MethodGet, []string{"users", "profile"}, nil, token, "", nil, &out)
	return out, err
}

// do performs a request and unwraps the {success, message, data} envelope into out.
func (c *Client) do(ctx context.Context, method string, path []string, query url.Values, token, idemKey string, body []byte, out any) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", ErrNotConfigured
	}
	endpoint, err := url.JoinPath(c.baseURL, path...)
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer ")); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idemKey != "" {
		req.Header.Set(idempotencyHeader, idemKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("store api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", domain.ErrSessionExpired
	}
	if resp.StatusCode == http.StatusNotFound && method == http.MethodGet {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", domain.ErrNotFound
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("store api: read body: %w", err)
	}
	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= 400 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = drainMessage(raw, resp.StatusCode)
		}
		return "", &APIError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("store api: decode: %w", decodeErr)
	}
	if env.Success != nil && !*env.Success {
		return "", &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", fmt.Errorf("store api: decode data: %w", err)
		}
	}
	return env.Message, nil
}

func drainMessage(raw []byte, status int) string {
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return http.StatusText(status)
	}
	return msg
}
