package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"

	HomePath  = "/"
	LoginPath = "/login"
)

// Store is the authentication state of one browser. A session is
// authenticated exactly when an access token is present; tokens are never
// validated here.
type Store struct {
	id      string
	storage Storage

	mu      sync.RWMutex
	access  string
	refresh string
}

// Open loads the persisted token pair from storage.
func Open(ctx context.Context, id string, storage Storage) (*Store, error) {
	access, err := storage.Get(ctx, KeyAccessToken)
	if err != nil {
		return nil, fmt.Errorf("load access token: %w", err)
	}
	refresh, err := storage.Get(ctx, KeyRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	return &Store{id: id, storage: storage, access: access, refresh: refresh}, nil
}

func (s *Store) ID() string { return s.id }

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access != ""
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// Login persists both tokens and returns the page to navigate to.
func (s *Store) Login(ctx context.Context, access, refresh string) (string, error) {
	if err := s.Rotate(ctx, access, refresh); err != nil {
		return "", err
	}
	return HomePath, nil
}

// Rotate replaces the stored token pair.
func (s *Store) Rotate(ctx context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Set(ctx, KeyAccessToken, access); err != nil {
		return err
	}
	if err := s.storage.Set(ctx, KeyRefreshToken, refresh); err != nil {
		return err
	}
	s.access, s.refresh = access, refresh
	return nil
}

// Logout clears both tokens and returns the login page path. In-memory
// state is cleared even when storage fails.
func (s *Store) Logout(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access, s.refresh = "", ""
	if err := s.storage.Delete(ctx, KeyAccessToken, KeyRefreshToken); err != nil {
		return LoginPath, err
	}
	return LoginPath, nil
}

// Subject peeks at the access token's user_id claim for logging. The
// signature is not checked.
func (s *Store) Subject() string {
	token := s.AccessToken()
	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	switch v := claims["user_id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	}
	if sub, err := claims.GetSubject(); err == nil {
		return sub
	}
	return ""
}
