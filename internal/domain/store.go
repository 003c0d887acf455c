package domain

import "context"

// KVStore is the persistent key/value port. Get returns (nil, nil) for a
// missing key; Delete of a missing key is not an error.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
