package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/internal/repository/state"
)

var ErrInvalidToken = errors.New("invalid session token")

const defaultTokenTTL = 30 * 24 * time.Hour

// Session is an issued shopper session.
type Session struct {
	ID        string    `json:"sessionId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service issues and resolves opaque shopper session tokens.
type Service struct {
	tokens   *tokenManager
	tokenTTL time.Duration
}

func NewService(repo state.Repository) *Service {
	return &Service{
		tokens:   newTokenManager(repo),
		tokenTTL: defaultTokenTTL,
	}
}

func (s *Service) Issue(ctx context.Context) (Session, error) {
	id := uuid.NewString()
	token, expires, err := s.tokens.Issue(ctx, id, s.tokenTTL)
	if err != nil {
		return Session{}, err
	}
	return Session{ID: id, Token: token, ExpiresAt: expires}, nil
}

// Lookup returns the session id for token, or ErrInvalidToken.
func (s *Service) Lookup(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	meta, ok, err := s.tokens.Validate(ctx, token)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrInvalidToken
	}
	return meta.SessionID, nil
}

func (s *Service) TokenTTLSeconds() int {
	return int(s.tokenTTL.Seconds())
}
