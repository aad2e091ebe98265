package store

import (
    "context"
    "errors"
)

// KV is the key-value persistence boundary. Values are opaque bytes; the
// client snapshot codec lives in ClientStore.
type KV interface {
    Get(ctx context.Context, key string) ([]byte, error)
    Put(ctx context.Context, key string, value []byte) error
}

// StorageKey addresses the client snapshot in every backend.
const StorageKey = "customer-route-planner-v1"

var ErrNotFound = errors.New("not found")
