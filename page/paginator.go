package page

import (
	"context"

	"github.com/hatlonely/rdbx/expr"
	"github.com/hatlonely/rdbx/sqlbuilder"
	"github.com/pkg/errors"
)

var (
	ErrPageOutOfRange  = errors.New("page out of range")
	ErrInvalidPageSize = errors.New("invalid page size")
	ErrLimitedQuery    = errors.New("query already has limit or offset")
	ErrEmptyPrefix     = errors.New("cache prefix is empty")
)

// CountFunc 统计查询匹配的行数
type CountFunc func(ctx context.Context, q *sqlbuilder.Query) (int64, error)

// FetchFunc 执行查询并物化记录
type FetchFunc[T any] func(ctx context.Context, q *sqlbuilder.Query) ([]*T, error)

// Paginator 分页视图，创建时统计总数，各页在请求时才查询
type Paginator[T any] struct {
	base  *sqlbuilder.Query
	size  int
	total int64
	pages int
	fetch FetchFunc[T]
	// 基础查询的标识，缓存默认以它为键前缀
	key string
}

// New 基础查询没有排序时追加主键升序，保证各页之间稳定
func New[T any](ctx context.Context, q *sqlbuilder.Query, size int, count CountFunc, fetch FetchFunc[T]) (*Paginator[T], error) {
	if size <= 0 {
		return nil, errors.WithMessagef(ErrInvalidPageSize, "size: %d", size)
	}
	if q == nil {
		q = sqlbuilder.NewQuery()
	}
	if q.HasLimit() {
		return nil, ErrLimitedQuery
	}

	total, err := count(ctx, q)
	if err != nil {
		return nil, errors.WithMessage(err, "count failed")
	}

	base := q.Clone()
	if !base.HasOrder() {
		base.OrderBy(expr.Self())
	}

	return &Paginator[T]{
		base:  base,
		size:  size,
		total: total,
		pages: int((total + int64(size) - 1) / int64(size)),
		fetch: fetch,
	}, nil
}

// Keyed 设置基础查询的标识，不同查询的分页视图共享缓存时以此区分
func (p *Paginator[T]) Keyed(key string) *Paginator[T] {
	p.key = key
	return p
}

func (p *Paginator[T]) Key() string {
	return p.key
}

func (p *Paginator[T]) Size() int {
	return p.size
}

// Total 创建时统计的总行数
func (p *Paginator[T]) Total() int64 {
	return p.total
}

func (p *Paginator[T]) Pages() int {
	return p.pages
}

// Query 第 i 页的查询，从 0 开始
func (p *Paginator[T]) Query(i int) (*sqlbuilder.Query, error) {
	if i < 0 || i >= p.pages {
		return nil, errors.WithMessagef(ErrPageOutOfRange, "page %d of %d", i, p.pages)
	}
	return p.base.Clone().Limit(p.size).Offset(i * p.size), nil
}

func (p *Paginator[T]) Get(ctx context.Context, i int) ([]*T, error) {
	q, err := p.Query(i)
	if err != nil {
		return nil, err
	}
	return p.fetch(ctx, q)
}
