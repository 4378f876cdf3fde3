package page

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrKeyNotFound = errors.New("key not found")

// Store 页缓存，键为字符串，过期的键视为不存在
type Store[V any] interface {
	// Get 键不存在或已过期时返回 ErrKeyNotFound
	Get(ctx context.Context, key string) (V, error)
	// Set ttl 为 0 时不过期
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	// Clear 清空本 Store 管理的所有键
	Clear(ctx context.Context) error
	Close() error
}

type StoreOptions struct {
	// map, freecache, redis
	Type      string                `cfg:"type" def:"freecache" validate:"oneof=map freecache redis"`
	FreeCache FreeCacheStoreOptions `cfg:"freecache"`
	Redis     RedisStoreOptions     `cfg:"redis"`
}

func NewStoreWithOptions[V any](options *StoreOptions) (Store[V], error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	switch options.Type {
	case "map":
		return NewMapStore[V](), nil
	case "", "freecache":
		return NewFreeCacheStoreWithOptions[V](&options.FreeCache), nil
	case "redis":
		store, err := NewRedisStoreWithOptions[V](&options.Redis)
		if err != nil {
			return nil, errors.WithMessage(err, "NewRedisStoreWithOptions failed")
		}
		return store, nil
	}

	return nil, errors.Errorf("unsupported store type: %s", options.Type)
}
