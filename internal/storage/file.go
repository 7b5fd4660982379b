package storage

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	fileFormatVersion = 1
	saltSize          = 16
	nonceSize         = 24
)

// fileEnvelope is the on-disk layout. Exactly one of Entries and Sealed is set.
type fileEnvelope struct {
	Version int               `json:"v"`
	Entries map[string][]byte `json:"entries,omitempty"`
	Salt    []byte            `json:"salt,omitempty"`
	Sealed  []byte            `json:"sealed,omitempty"`
}

// File keeps all entries in a single JSON file, optionally sealed with
// NaCl secretbox under a key derived from a passphrase.
type File struct {
	mu         sync.Mutex
	path       string
	passphrase string
	salt       []byte
	entries    map[string][]byte
}

// OpenFile loads path, creating an empty store if it does not exist yet
func OpenFile(path, passphrase string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("storage file path is empty")
	}

	f := &File{
		path:       path,
		passphrase: passphrase,
		entries:    make(map[string][]byte),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}

	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse storage file: %w", err)
	}

	switch {
	case env.Sealed != nil:
		if passphrase == "" {
			return nil, ErrSealed
		}
		f.salt = env.Salt
		plain, err := open(env.Sealed, deriveKey(passphrase, env.Salt))
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(plain, &f.entries); err != nil {
			return nil, fmt.Errorf("failed to parse sealed entries: %w", err)
		}
	case env.Entries != nil:
		f.entries = env.Entries
	}

	return f, nil
}

func (f *File) Get(key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	value, ok := f.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (f *File) Put(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries[key] = append([]byte(nil), value...)
	return f.flush()
}

func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.entries[key]; !ok {
		return nil
	}
	delete(f.entries, key)
	return f.flush()
}

func (f *File) Close() error { return nil }

// flush rewrites the file atomically; caller holds f.mu
func (f *File) flush() error {
	env := fileEnvelope{Version: fileFormatVersion}

	if f.passphrase == "" {
		env.Entries = f.entries
	} else {
		if f.salt == nil {
			f.salt = make([]byte, saltSize)
			if _, err := io.ReadFull(rand.Reader, f.salt); err != nil {
				return fmt.Errorf("failed to generate salt: %w", err)
			}
		}
		plain, err := json.Marshal(f.entries)
		if err != nil {
			return fmt.Errorf("failed to marshal entries: %w", err)
		}
		sealed, err := seal(plain, deriveKey(f.passphrase, f.salt))
		if err != nil {
			return err
		}
		env.Salt = f.salt
		env.Sealed = sealed
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace storage file: %w", err)
	}
	return nil
}

func deriveKey(passphrase string, salt []byte) *[32]byte {
	var key [32]byte
	copy(key[:], argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32))
	return &key
}

func seal(plain []byte, key *[32]byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, key), nil
}

func open(sealed []byte, key *[32]byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, ErrSealed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, key)
	if !ok {
		return nil, ErrSealed
	}
	return plain, nil
}
