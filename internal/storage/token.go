package storage

import (
	"errors"
	"sync"
)

// TokenKey is the fixed storage name of the bearer token
const TokenKey = "auth_token"

// TokenStore persists the bearer token on its own, so the API client can read
// it before any session state has been restored.
type TokenStore struct {
	mu sync.Mutex
	kv KV
}

func NewTokenStore(kv KV) *TokenStore {
	return &TokenStore{kv: kv}
}

// Get returns the stored token. Any backend failure reads as "no token".
func (s *TokenStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked()
}

func (s *TokenStore) getLocked() (string, bool) {
	value, err := s.kv.Get(TokenKey)
	if err != nil || len(value) == 0 {
		return "", false
	}
	return string(value), true
}

func (s *TokenStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		return s.clearLocked()
	}
	return s.kv.Put(TokenKey, []byte(token))
}

func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

// ClearIf removes the stored token only while it is still token. matched is
// false when another token replaced it in the meantime.
func (s *TokenStore) ClearIf(token string) (matched bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.getLocked()
	if !ok || current != token {
		return false, nil
	}
	return true, s.clearLocked()
}

func (s *TokenStore) clearLocked() error {
	if err := s.kv.Delete(TokenKey); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
