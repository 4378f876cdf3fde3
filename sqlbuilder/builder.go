package sqlbuilder

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hatlonely/rdbx/constraint"
	"github.com/hatlonely/rdbx/dialect"
	"github.com/hatlonely/rdbx/expr"
	"github.com/hatlonely/rdbx/schema"
	"github.com/pkg/errors"
)

type Options struct {
	// 方言：mysql, sqlite3；为空时跟随数据库驱动，单独使用时为 mysql
	Dialect string `cfg:"dialect" validate:"omitempty,oneof=mysql sqlite3 sqlite"`
	// 连接表的默认条件不加入 ON 子句
	SkipJoinConstraints bool `cfg:"skipJoinConstraints"`
	// 外键展开最大深度，0 表示不限
	MaxJoinDepth int `cfg:"maxJoinDepth" validate:"gte=0"`
	// datetime 字面量与结果解析的时区，如 Local, UTC, Asia/Shanghai；为空时使用方言默认
	Location string `cfg:"location"`
}

// Builder 根据 schema 与查询描述生成 SQL 文本，无状态，可并发使用
type Builder struct {
	dialect             *dialect.Dialect
	constraints         *constraint.Registry
	skipJoinConstraints bool
	maxJoinDepth        int
}

func NewBuilder(d *dialect.Dialect) *Builder {
	return &Builder{dialect: d, constraints: constraint.Default()}
}

func NewBuilderWithOptions(options *Options) (*Builder, error) {
	if options == nil {
		options = &Options{}
	}
	d, err := dialect.ByName(options.Dialect)
	if err != nil {
		return nil, err
	}
	if options.Location != "" {
		loc, err := time.LoadLocation(options.Location)
		if err != nil {
			return nil, errors.Wrapf(err, "time.LoadLocation %s failed", options.Location)
		}
		d = d.WithLocation(loc)
	}
	return &Builder{
		dialect:             d,
		constraints:         constraint.Default(),
		skipJoinConstraints: options.SkipJoinConstraints,
		maxJoinDepth:        options.MaxJoinDepth,
	}, nil
}

// WithConstraints 使用指定的默认条件注册表
func (b *Builder) WithConstraints(r *constraint.Registry) *Builder {
	nb := *b
	nb.constraints = r
	return &nb
}

// WithLocation datetime 字面量与结果解析使用指定时区
func (b *Builder) WithLocation(loc *time.Location) *Builder {
	nb := *b
	nb.dialect = b.dialect.WithLocation(loc)
	return &nb
}

func (b *Builder) Dialect() *dialect.Dialect {
	return b.dialect
}

// Graph 构造与 Select 相同的连接图，结果读取时使用
func (b *Builder) Graph(s *schema.Schema) *Graph {
	g := NewGraph(s, b.maxJoinDepth)
	g.Location = b.dialect.Loc()
	return g
}

// Select 查询多条记录
func (b *Builder) Select(s *schema.Schema, q *Query) (string, error) {
	return b.selectRecords(s, q, false)
}

// SelectOne 查询单条记录，总是追加 LIMIT 1
func (b *Builder) SelectOne(s *schema.Schema, q *Query) (string, error) {
	return b.selectRecords(s, q, true)
}

func (b *Builder) selectRecords(s *schema.Schema, q *Query, one bool) (string, error) {
	if q == nil {
		q = NewQuery()
	}
	g := b.Graph(s)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if q.distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(strings.Join(b.columns(g), ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.dialect.Quote(s.Table))

	joins, err := b.joins(g)
	if err != nil {
		return "", err
	}
	sb.WriteString(joins)

	if err := b.writeTail(&sb, s, g, q, one); err != nil {
		return "", err
	}

	return sb.String(), nil
}

// Count 统计满足条件的记录数，连接与 Select 一致
func (b *Builder) Count(s *schema.Schema, q *Query) (string, error) {
	if q == nil {
		q = NewQuery()
	}
	g := b.Graph(s)
	sc := NewScope(b.dialect, g.Root, nil)

	joins, err := b.joins(g)
	if err != nil {
		return "", err
	}
	where, err := b.where(s, sc, "", q.where)
	if err != nil {
		return "", err
	}
	from := b.dialect.Quote(s.Table) + joins + " WHERE " + where

	if len(q.groupBy) > 0 {
		groupBy, err := b.scalars(sc, q.groupBy)
		if err != nil {
			return "", err
		}
		return "SELECT COUNT(*) FROM (SELECT 1 FROM " + from + " GROUP BY " + groupBy + ") AS `grouped`", nil
	}

	identity := b.dialect.Quote(s.Table) + "." + b.dialect.Quote(s.Identity.Name)
	if q.distinct {
		return "SELECT COUNT(DISTINCT " + identity + ") FROM " + from, nil
	}
	return "SELECT COUNT(*) FROM " + from, nil
}

// Project 查询单个标量表达式，不生成任何连接
func (b *Builder) Project(s *schema.Schema, q *Query, e expr.Expr) (string, error) {
	if q == nil {
		q = NewQuery()
	}
	g := NewGraph(s, RootOnly)
	sc := NewScope(b.dialect, g.Root, nil)

	projection, err := expr.NewCompiler(b.dialect, sc).Scalar(e)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if q.distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(projection)
	sb.WriteString(" FROM ")
	sb.WriteString(b.dialect.Quote(s.Table))

	if err := b.writeTail(&sb, s, g, q, false); err != nil {
		return "", err
	}

	return sb.String(), nil
}

// columns 每个节点的列与外键列，标签为 <alias>_<column>
func (b *Builder) columns(g *Graph) []string {
	var cols []string
	for _, n := range g.Nodes {
		for _, c := range n.Schema.Columns {
			cols = append(cols, b.column(n.Alias, c.Name))
		}
		for _, fk := range n.Schema.ForeignKeys {
			cols = append(cols, b.column(n.Alias, fk.Column))
		}
	}
	return cols
}

func (b *Builder) column(alias, name string) string {
	return b.dialect.Quote(alias) + "." + b.dialect.Quote(name) + " AS " + b.dialect.Quote(Label(alias, name))
}

func (b *Builder) joins(g *Graph) (string, error) {
	var sb strings.Builder
	for _, n := range g.Nodes[1:] {
		on := &expr.Compare{
			Op:    expr.OpEq,
			Left:  &expr.Field{Path: []string{n.FK.Field}},
			Right: &expr.Field{Path: []string{n.Schema.Identity.Field}, Source: expr.Secondary},
		}
		cond, err := expr.NewCompiler(b.dialect, NewScope(b.dialect, n.Parent, n)).Predicate(on)
		if err != nil {
			return "", err
		}

		// 连接表自身的默认条件放在 ON 中，LEFT JOIN 时不满足条件的记录读取为未设置
		if !b.skipJoinConstraints {
			if c := b.constraints.Resolve(n.Schema.Type); c != nil {
				extra, err := expr.NewCompiler(b.dialect, NewScope(b.dialect, n, nil)).Conjunct(c)
				if err != nil {
					return "", errors.WithMessagef(err, "join %s", n.FK.Field)
				}
				cond += " AND " + extra
			}
		}

		sb.WriteString(" ")
		sb.WriteString(string(n.FK.Kind))
		sb.WriteString(" JOIN ")
		sb.WriteString(b.dialect.Quote(n.Schema.Table))
		sb.WriteString(" ")
		sb.WriteString(b.dialect.Quote(n.Alias))
		sb.WriteString(" ON ")
		sb.WriteString(cond)
	}
	return sb.String(), nil
}

// writeTail WHERE / GROUP BY / ORDER BY / LIMIT
func (b *Builder) writeTail(sb *strings.Builder, s *schema.Schema, g *Graph, q *Query, one bool) error {
	sc := NewScope(b.dialect, g.Root, nil)
	c := expr.NewCompiler(b.dialect, sc)

	where, err := b.where(s, sc, "", q.where)
	if err != nil {
		return err
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(where)

	if len(q.groupBy) > 0 {
		groupBy, err := b.scalars(sc, q.groupBy)
		if err != nil {
			return err
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(groupBy)
	}

	if len(q.orders) > 0 {
		orders := make([]string, 0, len(q.orders))
		for _, o := range q.orders {
			term, err := c.Order(o.Exprs...)
			if err != nil {
				return err
			}
			if o.Desc {
				term += " DESC"
			} else {
				term += " ASC"
			}
			orders = append(orders, term)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orders, ", "))
	}

	if q.offset < 0 || (q.limit != nil && *q.limit < 0) {
		return errors.WithMessage(ErrInvalidQuery, "negative limit or offset")
	}

	switch {
	case one:
		sb.WriteString(" LIMIT 1")
		if q.offset > 0 {
			sb.WriteString(" OFFSET " + strconv.Itoa(q.offset))
		}
	case q.limit != nil:
		sb.WriteString(" LIMIT " + strconv.Itoa(*q.limit) + " OFFSET " + strconv.Itoa(q.offset))
	case q.offset != 0:
		return errors.WithMessage(ErrInvalidQuery, "offset without limit")
	}

	return nil
}

func (b *Builder) scalars(sc expr.Resolver, exprs []expr.Expr) (string, error) {
	c := expr.NewCompiler(b.dialect, sc)
	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		s, err := c.Scalar(e)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", "), nil
}

// where 用户条件 AND 默认条件，都没有时为 TRUE；raw 为已渲染的前置条件
func (b *Builder) where(s *schema.Schema, sc expr.Resolver, raw string, pred expr.Expr) (string, error) {
	e := expr.And(pred, b.constraints.Resolve(s.Type))
	c := expr.NewCompiler(b.dialect, sc)

	if raw == "" {
		if e == nil {
			return "TRUE", nil
		}
		return c.Predicate(e)
	}

	if e == nil {
		return raw, nil
	}
	rest, err := c.Conjunct(e)
	if err != nil {
		return "", err
	}
	return raw + " AND " + rest, nil
}

// record 校验并解引用记录
func record(s *schema.Schema, r any) (reflect.Value, error) {
	v := schema.Indirect(reflect.ValueOf(r))
	if !v.IsValid() || v.Type() != s.Type {
		return reflect.Value{}, errors.WithMessagef(ErrInvalidQuery, "expect %v, got %T", s.Type, r)
	}
	return v, nil
}
