package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/8.8.8.8/json", r.URL.Path)
		_, _ = w.Write([]byte(`{"ip":"8.8.8.8","city":" Almaty ","country_code":"kz","postal":"050000"}`))
	}))
	defer srv.Close()

	loc, err := NewClient(srv.URL, time.Second).Lookup(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, Location{CountryCode: "KZ", City: "Almaty", PostalCode: "050000"}, loc)
}

func TestLookupProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":true,"reason":"RateLimited"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Lookup(context.Background(), "1.1.1.1")
	assert.ErrorContains(t, err, "RateLimited")
}

func TestLookupRejectsPrivateAndInvalid(t *testing.T) {
	c := NewClient("http://unused.invalid", time.Second)

	_, err := c.Lookup(context.Background(), "127.0.0.1")
	assert.ErrorIs(t, err, ErrPrivateAddress)
	_, err = c.Lookup(context.Background(), "10.1.2.3")
	assert.ErrorIs(t, err, ErrPrivateAddress)
	_, err = c.Lookup(context.Background(), "not-an-ip")
	assert.Error(t, err)
}
