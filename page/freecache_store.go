package page

import (
	"context"
	"time"

	"github.com/coocood/freecache"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

type FreeCacheStoreOptions struct {
	// 缓存大小，字节
	Size int `cfg:"size" def:"33554432"`
}

// FreeCacheStore 基于 freecache 的进程内存储，值以 msgpack 编码
type FreeCacheStore[V any] struct {
	cache *freecache.Cache
}

func NewFreeCacheStoreWithOptions[V any](options *FreeCacheStoreOptions) *FreeCacheStore[V] {
	size := options.Size
	if size <= 0 {
		size = 32 * 1024 * 1024
	}
	return &FreeCacheStore[V]{cache: freecache.NewCache(size)}
}

func (s *FreeCacheStore[V]) Get(ctx context.Context, key string) (V, error) {
	var value V

	buf, err := s.cache.Get([]byte(key))
	if err != nil {
		return value, ErrKeyNotFound
	}

	if err := msgpack.Unmarshal(buf, &value); err != nil {
		return value, errors.Wrap(err, "msgpack.Unmarshal failed")
	}
	return value, nil
}

func (s *FreeCacheStore[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	buf, err := msgpack.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "msgpack.Marshal failed")
	}
	return s.cache.Set([]byte(key), buf, expireSeconds(ttl))
}

func (s *FreeCacheStore[V]) Del(ctx context.Context, key string) error {
	s.cache.Del([]byte(key))
	return nil
}

func (s *FreeCacheStore[V]) Clear(ctx context.Context) error {
	s.cache.Clear()
	return nil
}

func (s *FreeCacheStore[V]) Close() error {
	s.cache.Clear()
	return nil
}

// expireSeconds freecache 以秒为粒度，不足一秒按一秒计
func expireSeconds(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	seconds := int(ttl / time.Second)
	if ttl%time.Second != 0 {
		seconds++
	}
	return seconds
}
