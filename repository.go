package rdbx

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"reflect"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/hatlonely/rdbx/expr"
	"github.com/hatlonely/rdbx/materialize"
	"github.com/hatlonely/rdbx/page"
	"github.com/hatlonely/rdbx/schema"
	"github.com/hatlonely/rdbx/sqlbuilder"
	"github.com/pkg/errors"
)

// Repository 记录类型 T 的增删改查
type Repository[T any] struct {
	db      *DB
	schema  *schema.Schema
	scanner *materialize.Scanner[T]
}

func NewRepository[T any](db *DB) (*Repository[T], error) {
	s, err := schema.Of[T]()
	if err != nil {
		return nil, errors.WithMessagef(err, "schema of %v", reflect.TypeFor[T]())
	}
	scanner, err := materialize.NewScanner[T](db.builder.Graph(s))
	if err != nil {
		return nil, err
	}
	return &Repository[T]{db: db, schema: s, scanner: scanner}, nil
}

func MustNewRepository[T any](db *DB) *Repository[T] {
	r, err := NewRepository[T](db)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Repository[T]) Schema() *schema.Schema {
	return r.schema
}

func (r *Repository[T]) rows(ctx context.Context, q *sqlbuilder.Query) (*sql.Rows, error) {
	stmt, err := r.db.builder.Select(r.schema, q)
	if err != nil {
		return nil, err
	}
	return r.db.conn.Query(ctx, stmt)
}

func (r *Repository[T]) exec(ctx context.Context, stmt string) (int64, error) {
	res, err := r.db.conn.Exec(ctx, stmt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

func (r *Repository[T]) Find(ctx context.Context, q *sqlbuilder.Query) ([]*T, error) {
	rows, err := r.rows(ctx, q)
	if err != nil {
		return nil, err
	}
	return r.scanner.List(rows)
}

// FindOne 第一条记录，没有结果时返回 nil, nil
func (r *Repository[T]) FindOne(ctx context.Context, q *sqlbuilder.Query) (*T, error) {
	stmt, err := r.db.builder.SelectOne(r.schema, q)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.conn.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return r.scanner.One(rows)
}

// Get 按主键查询，不存在时返回 ErrRecordNotFound
func (r *Repository[T]) Get(ctx context.Context, id any) (*T, error) {
	v, err := r.FindOne(ctx, sqlbuilder.NewQuery().Where(expr.Self().Eq(id)))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errors.WithMessagef(ErrRecordNotFound, "%s id: %v", r.schema.Table, id)
	}
	return v, nil
}

// Each 逐条读取，fn 返回错误时中止
func (r *Repository[T]) Each(ctx context.Context, q *sqlbuilder.Query, fn func(*T) error) error {
	rows, err := r.rows(ctx, q)
	if err != nil {
		return err
	}
	return r.scanner.Each(rows, fn)
}

// Seq 惰性读取，查询失败时只产生一个错误
func (r *Repository[T]) Seq(ctx context.Context, q *sqlbuilder.Query) iter.Seq2[*T, error] {
	rows, err := r.rows(ctx, q)
	if err != nil {
		return func(yield func(*T, error) bool) {
			yield(nil, err)
		}
	}
	return r.scanner.Seq(rows)
}

// FindArray 填充 dst，返回填充的数量
func (r *Repository[T]) FindArray(ctx context.Context, q *sqlbuilder.Query, dst []*T) (int, error) {
	if !q.HasLimit() {
		q = q.Clone().Limit(len(dst))
	}
	rows, err := r.rows(ctx, q)
	if err != nil {
		return 0, err
	}
	return r.scanner.Array(rows, dst)
}

func FindMap[T any, K comparable, V any](ctx context.Context, r *Repository[T], q *sqlbuilder.Query, key func(*T) K, value func(*T) V) (map[K]V, error) {
	rows, err := r.rows(ctx, q)
	if err != nil {
		return nil, err
	}
	return materialize.Map(r.scanner, rows, key, value)
}

func FindSet[T any, K comparable](ctx context.Context, r *Repository[T], q *sqlbuilder.Query, key func(*T) K) (map[K]struct{}, error) {
	rows, err := r.rows(ctx, q)
	if err != nil {
		return nil, err
	}
	return materialize.Set(r.scanner, rows, key)
}

func (r *Repository[T]) Count(ctx context.Context, q *sqlbuilder.Query) (int64, error) {
	stmt, err := r.db.builder.Count(r.schema, q)
	if err != nil {
		return 0, err
	}
	rows, err := r.db.conn.Query(ctx, stmt)
	if err != nil {
		return 0, err
	}
	values, err := materialize.Values[int64](rows)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}
	return values[0], nil
}

func (r *Repository[T]) Any(ctx context.Context, q *sqlbuilder.Query) (bool, error) {
	n, err := r.Count(ctx, q)
	return n > 0, err
}

// Project 查询单个表达式的值，不连接外键表
func (r *Repository[T]) Project(ctx context.Context, q *sqlbuilder.Query, e expr.Expr) ([]any, error) {
	return ProjectAs[any](ctx, r, q, e)
}

func ProjectAs[V any, T any](ctx context.Context, r *Repository[T], q *sqlbuilder.Query, e expr.Expr) ([]V, error) {
	stmt, err := r.db.builder.Project(r.schema, q, e)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.conn.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return materialize.ValuesIn[V](rows, r.db.builder.Dialect().Loc())
}

// Insert 插入记录，自增主键回填到 record，调用方赋值的主键为空时生成
func (r *Repository[T]) Insert(ctx context.Context, record *T) error {
	if err := r.assignIdentity(record); err != nil {
		return err
	}
	stmt, err := r.db.builder.Insert(r.schema, record)
	if err != nil {
		return err
	}
	res, err := r.db.conn.Exec(ctx, stmt)
	if err != nil {
		return err
	}
	if !r.schema.Identity.Assigned && res.LastInsertID != 0 {
		return setIdentity(r.identityField(record), res.LastInsertID)
	}
	return nil
}

func (r *Repository[T]) identityField(record *T) reflect.Value {
	return reflect.ValueOf(record).Elem().FieldByIndex(r.schema.Identity.Index)
}

func (r *Repository[T]) assignIdentity(record *T) error {
	if record == nil || !r.schema.Identity.Assigned || r.db.ids == nil {
		return nil
	}
	fv := r.identityField(record)
	if !fv.IsZero() {
		return nil
	}
	return setIdentity(fv, r.db.ids.Generate())
}

// setIdentity 生成的主键写入字段：整数、uuid.UUID 或其字符串形式
func setIdentity(fv reflect.Value, id any) error {
	v := reflect.ValueOf(id)
	switch {
	case v.Type().AssignableTo(fv.Type()):
		fv.Set(v)
	case fv.Kind() == reflect.String:
		fv.SetString(fmt.Sprint(id))
	case v.CanInt() && fv.CanInt():
		fv.SetInt(v.Int())
	case v.CanInt() && fv.CanUint():
		fv.SetUint(uint64(v.Int()))
	case v.Type().ConvertibleTo(fv.Type()):
		fv.Set(v.Convert(fv.Type()))
	default:
		return errors.Errorf("cannot assign %T to identity of type %v", id, fv.Type())
	}
	return nil
}

// InsertBatch 多条记录一条语句插入，不回填主键
func (r *Repository[T]) InsertBatch(ctx context.Context, records []*T) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	values := make([]any, len(records))
	for i, record := range records {
		if err := r.assignIdentity(record); err != nil {
			return 0, err
		}
		values[i] = record
	}
	stmts, err := r.db.builder.InsertBatches(r.schema, values)
	if err != nil {
		return 0, err
	}
	if len(stmts) == 1 {
		return r.exec(ctx, stmts[0])
	}

	// 省略的默认值列不同的记录分多条语句写入，在同一事务中完成
	var total int64
	err = r.db.WithTx(ctx, func(ctx context.Context) error {
		for _, stmt := range stmts {
			n, err := r.exec(ctx, stmt)
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *Repository[T]) Update(ctx context.Context, record *T) (int64, error) {
	stmt, err := r.db.builder.Update(r.schema, record)
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, stmt)
}

// UpdateWhere 以 record 的值更新所有满足 pred 的行
func (r *Repository[T]) UpdateWhere(ctx context.Context, record *T, pred expr.Expr) (int64, error) {
	stmt, err := r.db.builder.UpdateWhere(r.schema, record, pred)
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, stmt)
}

// UpdateColumn 只更新一列，value 可以是常量或表达式
func (r *Repository[T]) UpdateColumn(ctx context.Context, field string, value any, pred expr.Expr) (int64, error) {
	stmt, err := r.db.builder.UpdateColumn(r.schema, field, value, pred)
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, stmt)
}

// Delete 有软删除列时标记删除
func (r *Repository[T]) Delete(ctx context.Context, record *T) (int64, error) {
	stmt, err := r.db.builder.Delete(r.schema, record)
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, stmt)
}

func (r *Repository[T]) DeleteByID(ctx context.Context, id any) (int64, error) {
	stmt, err := r.db.builder.DeleteByID(r.schema, id)
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, stmt)
}

func (r *Repository[T]) DeleteByIDs(ctx context.Context, ids ...any) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	stmt, err := r.db.builder.DeleteByIDs(r.schema, ids)
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, stmt)
}

func (r *Repository[T]) DeleteWhere(ctx context.Context, pred expr.Expr) (int64, error) {
	stmt, err := r.db.builder.DeleteWhere(r.schema, pred)
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, stmt)
}

func (r *Repository[T]) Truncate(ctx context.Context) error {
	_, err := r.db.conn.Exec(ctx, r.db.builder.Truncate(r.schema))
	return err
}

// Paginate 统计总数后返回分页视图，各页按需查询
func (r *Repository[T]) Paginate(ctx context.Context, q *sqlbuilder.Query, size int) (*page.Paginator[T], error) {
	p, err := page.New[T](ctx, q, size, r.Count, r.Find)
	if err != nil {
		return nil, err
	}
	stmt, err := r.db.builder.Select(r.schema, q)
	if err != nil {
		return nil, err
	}
	return p.Keyed(r.schema.Table + ":" + strconv.FormatUint(xxhash.Sum64String(stmt), 16)), nil
}

func (r *Repository[T]) PaginateCached(ctx context.Context, q *sqlbuilder.Query, size int, store page.Store[[]*T], options *page.CachedOptions) (*page.CachedPaginator[T], error) {
	p, err := r.Paginate(ctx, q, size)
	if err != nil {
		return nil, err
	}
	return page.NewCached(p, store, options)
}

func (r *Repository[T]) FindAsync(ctx context.Context, q *sqlbuilder.Query) *Future[[]*T] {
	return Go(func() ([]*T, error) { return r.Find(ctx, q) })
}

func (r *Repository[T]) GetAsync(ctx context.Context, id any) *Future[*T] {
	return Go(func() (*T, error) { return r.Get(ctx, id) })
}

func (r *Repository[T]) CountAsync(ctx context.Context, q *sqlbuilder.Query) *Future[int64] {
	return Go(func() (int64, error) { return r.Count(ctx, q) })
}

func (r *Repository[T]) InsertAsync(ctx context.Context, record *T) *Future[*T] {
	return Go(func() (*T, error) { return record, r.Insert(ctx, record) })
}
