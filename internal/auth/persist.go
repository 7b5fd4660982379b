package auth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/memberdesk/memberdesk/internal/models"
	"github.com/memberdesk/memberdesk/internal/storage"
)

// StorageKey is the fixed name of the persisted session record
const StorageKey = "auth-storage"

// Record is the durable subset of State
type Record struct {
	Token           string       `json:"token"`
	User            *models.User `json:"user"`
	IsAuthenticated bool         `json:"isAuthenticated"`
}

// Persister loads and saves the session record
type Persister interface {
	Load() (Record, error)
	Save(Record) error
}

type persistedEnvelope struct {
	State   Record `json:"state"`
	Version int    `json:"version"`
}

// KVPersister stores the record as JSON on a storage.KV
type KVPersister struct {
	kv storage.KV
}

func NewKVPersister(kv storage.KV) *KVPersister {
	return &KVPersister{kv: kv}
}

// Load returns the stored record, or an empty one if nothing was saved yet
func (p *KVPersister) Load() (Record, error) {
	data, err := p.kv.Get(StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Record{}, nil
		}
		return Record{}, fmt.Errorf("failed to read session record: %w", err)
	}

	var env persistedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Record{}, fmt.Errorf("failed to decode session record: %w", err)
	}
	return env.State, nil
}

func (p *KVPersister) Save(r Record) error {
	data, err := json.Marshal(persistedEnvelope{State: r})
	if err != nil {
		return fmt.Errorf("failed to encode session record: %w", err)
	}
	if err := p.kv.Put(StorageKey, data); err != nil {
		return fmt.Errorf("failed to write session record: %w", err)
	}
	return nil
}

func recordOf(s State) Record {
	return Record{
		Token:           s.Token,
		User:            s.User,
		IsAuthenticated: s.IsAuthenticated,
	}
}
