package storage

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "memberdesk"
)

// Keyring stores values in the OS keychain/credential manager.
// Keys are scoped so sessions against different API origins never collide.
type Keyring struct {
	scope string
}

func NewKeyring(scope string) *Keyring {
	return &Keyring{scope: scope}
}

// keyringKey returns a unique key per API origin
func (k *Keyring) keyringKey(key string) string {
	if k.scope == "" {
		return key
	}
	return fmt.Sprintf("%s-%s", key, k.scope)
}

func (k *Keyring) Get(key string) ([]byte, error) {
	value, err := keyring.Get(service, k.keyringKey(key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return []byte(value), nil
}

func (k *Keyring) Put(key string, value []byte) error {
	if err := keyring.Set(service, k.keyringKey(key), string(value)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (k *Keyring) Delete(key string) error {
	if err := keyring.Delete(service, k.keyringKey(key)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (k *Keyring) Close() error { return nil }
