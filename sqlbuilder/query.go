package sqlbuilder

import (
	"slices"

	"github.com/hatlonely/rdbx/expr"
)

// Order 一个排序项，多个表达式时以 COALESCE 合并
type Order struct {
	Exprs []expr.Expr
	Desc  bool
}

// Query 查询描述：过滤、排序、分组、分页与去重
type Query struct {
	where    expr.Expr
	orders   []Order
	groupBy  []expr.Expr
	limit    *int
	offset   int
	distinct bool
}

func NewQuery() *Query {
	return &Query{}
}

// Where 追加过滤条件，与已有条件 AND 组合
func (q *Query) Where(e expr.Expr) *Query {
	q.where = expr.And(q.where, e)
	return q
}

func (q *Query) OrderBy(exprs ...expr.Expr) *Query {
	q.orders = append(q.orders, Order{Exprs: exprs})
	return q
}

func (q *Query) OrderByDesc(exprs ...expr.Expr) *Query {
	q.orders = append(q.orders, Order{Exprs: exprs, Desc: true})
	return q
}

func (q *Query) GroupBy(exprs ...expr.Expr) *Query {
	q.groupBy = append(q.groupBy, exprs...)
	return q
}

func (q *Query) Limit(n int) *Query {
	q.limit = &n
	return q
}

func (q *Query) Offset(n int) *Query {
	q.offset = n
	return q
}

func (q *Query) Distinct() *Query {
	q.distinct = true
	return q
}

// Predicate 用户条件，不含默认条件
func (q *Query) Predicate() expr.Expr {
	if q == nil {
		return nil
	}
	return q.where
}

func (q *Query) HasOrder() bool {
	return q != nil && len(q.orders) > 0
}

func (q *Query) HasLimit() bool {
	return q != nil && q.limit != nil
}

// Clone 复制查询描述，表达式节点不可变，可以共享
func (q *Query) Clone() *Query {
	if q == nil {
		return NewQuery()
	}
	c := &Query{
		where:    q.where,
		orders:   slices.Clone(q.orders),
		groupBy:  slices.Clone(q.groupBy),
		offset:   q.offset,
		distinct: q.distinct,
	}
	if q.limit != nil {
		n := *q.limit
		c.limit = &n
	}
	return c
}
