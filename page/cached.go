package page

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

type CachedOptions struct {
	// 键前缀，共享 Store 的多个分页视图之间需要不同，为空时使用分页视图的 Key
	Prefix string        `cfg:"prefix"`
	TTL    time.Duration `cfg:"ttl" def:"1m"`
}

// CachedPaginator 按页号缓存 Get 的结果，过期或缺失时重新查询
// 同一页并发失效与回填时以最后一次写入为准
type CachedPaginator[T any] struct {
	*Paginator[T]

	store  Store[[]*T]
	prefix string
	ttl    time.Duration
}

// NewCached 前缀和分页视图的 Key 都为空时返回 ErrEmptyPrefix
func NewCached[T any](p *Paginator[T], store Store[[]*T], options *CachedOptions) (*CachedPaginator[T], error) {
	c := &CachedPaginator[T]{Paginator: p, store: store, prefix: p.key}
	if options != nil {
		if options.Prefix != "" {
			c.prefix = options.Prefix
		}
		c.ttl = options.TTL
	}
	if c.prefix == "" {
		return nil, ErrEmptyPrefix
	}
	return c, nil
}

func (c *CachedPaginator[T]) key(i int) string {
	return c.prefix + ":" + strconv.Itoa(i)
}

func (c *CachedPaginator[T]) Get(ctx context.Context, i int) ([]*T, error) {
	if i < 0 || i >= c.pages {
		return nil, errors.WithMessagef(ErrPageOutOfRange, "page %d of %d", i, c.pages)
	}

	records, err := c.store.Get(ctx, c.key(i))
	if err == nil {
		return records, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, errors.WithMessage(err, "cache get failed")
	}

	records, err = c.Paginator.Get(ctx, i)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, c.key(i), records, c.ttl); err != nil {
		return nil, errors.WithMessage(err, "cache set failed")
	}
	return records, nil
}

// Invalidate 清除一页
func (c *CachedPaginator[T]) Invalidate(ctx context.Context, i int) error {
	return c.store.Del(ctx, c.key(i))
}

// InvalidateAll 清除本视图的所有页
func (c *CachedPaginator[T]) InvalidateAll(ctx context.Context) error {
	for i := 0; i < c.pages; i++ {
		if err := c.store.Del(ctx, c.key(i)); err != nil {
			return err
		}
	}
	return nil
}
