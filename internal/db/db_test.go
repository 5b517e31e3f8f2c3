package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRejectsMalformedDSN(t *testing.T) {
	_, err := Connect(context.Background(), "not a dsn", nil)
	assert.ErrorContains(t, err, "parse dsn")
}

func TestConnect(t *testing.T) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := Connect(context.Background(), dsn, nil)
	require.NoError(t, err)
	defer pool.Close()
	assert.NoError(t, pool.Ping(context.Background()))
}
