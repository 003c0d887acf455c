package kv

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samber/oops"

	"go-auth-core/internal/domain"
)

// GetJSON decodes the value under key into T. found is false when the key is
// absent. A value that does not decode yields an error matching
// domain.ErrStorageCorrupt.
func GetJSON[T any](ctx context.Context, s domain.KVStore, key string) (out T, found bool, err error) {
	b, err := s.Get(ctx, key)
	if err != nil {
		return out, false, err
	}
	if b == nil {
		return out, false, nil
	}
	if e := json.Unmarshal(b, &out); e != nil {
		var zero T
		return zero, true, oops.In("kv").Code("KV_CORRUPT").With("key", key).
			Wrap(fmt.Errorf("%w: %v", domain.ErrStorageCorrupt, e))
	}
	return out, true, nil
}

func SetJSON[T any](ctx context.Context, s domain.KVStore, key string, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return oops.In("kv").Code("KV_ENCODE_FAILED").With("key", key).Wrap(err)
	}
	return s.Set(ctx, key, b)
}
