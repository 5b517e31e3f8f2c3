package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository/state"
)

// tokenNamespace holds token records in the state repository, keyed by token hash.
const tokenNamespace = "session_tokens"

type tokenMeta struct {
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// tokenManager keeps issued tokens durable in the state repository and caches
// them in memory.
type tokenManager struct {
	repo state.Repository
	now  func() time.Time

	mu     sync.RWMutex
	tokens map[string]tokenMeta
}

func newTokenManager(repo state.Repository) *tokenManager {
	return &tokenManager{
		repo:   repo,
		now:    time.Now,
		tokens: make(map[string]tokenMeta),
	}
}

func (m *tokenManager) Issue(ctx context.Context, sessionID string, ttl time.Duration) (string, time.Time, error) {
	token, err := randomToken()
	if err != nil {
		return "", time.Time{}, err
	}
	meta := tokenMeta{SessionID: sessionID, ExpiresAt: m.now().Add(ttl).UTC()}
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", time.Time{}, err
	}
	key := tokenKey(token)
	if err := m.repo.Save(ctx, tokenNamespace, key, raw); err != nil {
		return "", time.Time{}, err
	}
	m.mu.Lock()
	m.tokens[key] = meta
	m.mu.Unlock()
	return token, meta.ExpiresAt, nil
}

func (m *tokenManager) Validate(ctx context.Context, token string) (tokenMeta, bool, error) {
	key := tokenKey(token)
	m.mu.RLock()
	meta, ok := m.tokens[key]
	m.mu.RUnlock()
	if !ok {
		raw, err := m.repo.Load(ctx, tokenNamespace, key)
		if errors.Is(err, domain.ErrNotFound) {
			return tokenMeta{}, false, nil
		}
		if err != nil {
			return tokenMeta{}, false, err
		}
		if err := json.Unmarshal(raw, &meta); err != nil || meta.SessionID == "" {
			return tokenMeta{}, false, nil
		}
	}
	if m.now().After(meta.ExpiresAt) {
		m.mu.Lock()
		delete(m.tokens, key)
		m.mu.Unlock()
		_ = m.repo.Delete(ctx, tokenNamespace, key)
		return tokenMeta{}, false, nil
	}
	if !ok {
		m.mu.Lock()
		m.tokens[key] = meta
		m.mu.Unlock()
	}
	return meta, true, nil
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
