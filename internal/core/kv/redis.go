package kv

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"golang.org/x/sync/singleflight"
)

// Redis stores every key under Prefix with no TTL.
type Redis struct {
	RDB    *redis.Client
	Prefix string
	sf     singleflight.Group
}

func NewRedis(addr, pass string, db int, prefix string) *Redis {
	return &Redis{
		RDB:    redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
		Prefix: prefix,
	}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	// 并发读同一个 key 只打一次 redis；共享的那次读取不跟随任何一个调用方取消
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := r.sf.Do(key, func() (any, error) {
		b, e := r.RDB.Get(flightCtx, r.Prefix+key).Bytes()
		if errors.Is(e, redis.Nil) {
			return []byte(nil), nil
		}
		return b, e
	})
	if err != nil {
		return nil, oops.In("kv").Code("KV_GET_FAILED").With("key", key).Wrap(err)
	}
	b := v.([]byte)
	if b == nil {
		return nil, nil
	}
	return append([]byte(nil), b...), nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	err := r.RDB.Set(ctx, r.Prefix+key, value, 0).Err()
	// 写完后新的 Get 不再合并到写之前发起的读取上
	r.sf.Forget(key)
	if err != nil {
		return oops.In("kv").Code("KV_SET_FAILED").With("key", key).Wrap(err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	err := r.RDB.Del(ctx, r.Prefix+key).Err()
	r.sf.Forget(key)
	if err != nil {
		return oops.In("kv").Code("KV_DELETE_FAILED").With("key", key).Wrap(err)
	}
	return nil
}

func (r *Redis) Close() error { return r.RDB.Close() }
