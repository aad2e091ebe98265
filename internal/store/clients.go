package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"visitroute/internal/model"
)

// StorageReadError means the persisted snapshot could not be used. Callers
// recover by starting from an empty collection.
type StorageReadError struct {
	Err error
}

func (e *StorageReadError) Error() string { return fmt.Sprintf("read client snapshot: %v", e.Err) }
func (e *StorageReadError) Unwrap() error { return e.Err }

type snapshot struct {
	Clients json.RawMessage `json:"clients"`
}

// ClientStore reads and writes the whole client list under StorageKey.
type ClientStore struct {
	KV KV
}

func NewClientStore(kv KV) *ClientStore { return &ClientStore{KV: kv} }

// Load returns the persisted clients. Missing data is an empty list with no
// error; unreadable or malformed data is an empty list plus *StorageReadError.
func (s *ClientStore) Load(ctx context.Context) ([]model.Client, error) {
	raw, err := s.KV.Get(ctx, StorageKey)
	if errors.Is(err, ErrNotFound) || (err == nil && len(raw) == 0) {
		return []model.Client{}, nil
	}
	if err != nil {
		return []model.Client{}, &StorageReadError{Err: err}
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return []model.Client{}, &StorageReadError{Err: err}
	}
	var clients []model.Client
	if len(snap.Clients) == 0 || json.Unmarshal(snap.Clients, &clients) != nil || clients == nil {
		return []model.Client{}, &StorageReadError{Err: errors.New("clients is not an array")}
	}
	return clients, nil
}

// Save persists the full list; there are no partial writes.
func (s *ClientStore) Save(ctx context.Context, clients []model.Client) error {
	if clients == nil {
		clients = []model.Client{}
	}
	b, err := json.Marshal(struct {
		Clients []model.Client `json:"clients"`
	}{clients})
	if err != nil {
		return err
	}
	return s.KV.Put(ctx, StorageKey, b)
}
