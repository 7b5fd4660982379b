// Package storage holds the durable key-value backends that survive process
// restarts: the bearer token and the persisted session record live here.
package storage

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var (
	ErrNotFound = errors.New("key not found")
	ErrSealed   = errors.New("storage is sealed with a different key")
)

// KV is a small durable key-value store
type KV interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// Options selects and configures a backend
type Options struct {
	Driver      string // sqlite, keyring, file, memory
	DatabaseURL string // sqlite
	FilePath    string // file
	Passphrase  string // file; empty stores plaintext JSON
	Scope       string // keyring; usually the API origin
	Logger      zerolog.Logger
}

// Open returns the backend named by opts.Driver
func Open(opts Options) (KV, error) {
	switch opts.Driver {
	case "sqlite":
		return OpenSQLite(opts.DatabaseURL, opts.Logger)
	case "keyring":
		return NewKeyring(opts.Scope), nil
	case "file":
		return OpenFile(opts.FilePath, opts.Passphrase)
	case "memory", "":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
