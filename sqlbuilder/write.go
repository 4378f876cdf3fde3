package sqlbuilder

import (
	"reflect"
	"strings"

	"github.com/hatlonely/rdbx/expr"
	"github.com/hatlonely/rdbx/schema"
	"github.com/pkg/errors"
)

// Insert 插入单条记录，数据库生成的主键以占位符结尾
func (b *Builder) Insert(s *schema.Schema, r any) (string, error) {
	return b.InsertBatch(s, []any{r})
}

// InsertBatch 多条记录合并为一条 INSERT，每条记录一组 VALUES
// 方言没有 DEFAULT 关键字且各行省略的默认值列不同时无法合并，使用 InsertBatches
func (b *Builder) InsertBatch(s *schema.Schema, records []any) (string, error) {
	stmts, err := b.InsertBatches(s, records)
	if err != nil {
		return "", err
	}
	if len(stmts) > 1 {
		return "", errors.WithMessagef(ErrInvalidQuery, "records omit different default columns of %v", s.Type)
	}
	return stmts[0], nil
}

// insertGroup 列集合相同、可以合并为一条语句的记录
type insertGroup struct {
	cols []*schema.Column
	rows []reflect.Value
}

// InsertBatches 按写入的列集合分组，每组一条 INSERT，组按首条记录的顺序排列
func (b *Builder) InsertBatches(s *schema.Schema, records []any) ([]string, error) {
	if len(records) == 0 {
		return nil, errors.WithMessage(ErrInvalidQuery, "no records to insert")
	}

	var groups []*insertGroup
	index := map[string]*insertGroup{}
	for _, r := range records {
		v, err := record(s, r)
		if err != nil {
			return nil, err
		}
		cols, key := b.insertColumns(s, v)
		g, ok := index[key]
		if !ok {
			g = &insertGroup{cols: cols}
			index[key] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, v)
	}

	stmts := make([]string, 0, len(groups))
	for _, g := range groups {
		stmt, err := b.insert(s, g)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (b *Builder) insert(s *schema.Schema, g *insertGroup) (string, error) {
	names := make([]string, 0, len(g.cols)+len(s.ForeignKeys)+1)
	for _, c := range g.cols {
		names = append(names, b.dialect.Quote(c.Name))
	}
	for _, fk := range s.ForeignKeys {
		names = append(names, b.dialect.Quote(fk.Column))
	}
	if !s.Identity.Assigned {
		names = append(names, b.dialect.Quote(s.Identity.Name))
	}

	rows := make([]string, 0, len(g.rows))
	for _, v := range g.rows {
		values := make([]string, 0, len(names))
		for _, c := range g.cols {
			val, err := b.columnValue(c, v)
			if err != nil {
				return "", err
			}
			values = append(values, val)
		}
		for _, fk := range s.ForeignKeys {
			val, err := b.foreignKeyValue(fk, v)
			if err != nil {
				return "", err
			}
			values = append(values, val)
		}
		if !s.Identity.Assigned {
			values = append(values, b.dialect.IdentityPlaceholder)
		}
		rows = append(rows, "("+strings.Join(values, ", ")+")")
	}

	return "INSERT INTO " + b.dialect.Quote(s.Table) + " (" + strings.Join(names, ", ") + ") VALUES " + strings.Join(rows, ", "), nil
}

// insertColumns 记录需要写入的普通列，调用方赋值的主键保留在原位置
// key 为省略的默认值列，用于分组
func (b *Builder) insertColumns(s *schema.Schema, v reflect.Value) ([]*schema.Column, string) {
	cols := make([]*schema.Column, 0, len(s.Columns))
	var omitted []string
	for _, c := range s.Columns {
		if c.AlwaysDefault || (c.Identity && !c.Assigned) {
			continue
		}
		if b.omitDefault(c, v) {
			omitted = append(omitted, c.Name)
			continue
		}
		cols = append(cols, c)
	}
	return cols, strings.Join(omitted, ",")
}

// omitDefault 方言没有 DEFAULT 关键字时，值为空的默认值列从语句中省略，由数据库取默认值
func (b *Builder) omitDefault(c *schema.Column, v reflect.Value) bool {
	return c.DefaultOnNull && b.dialect.OmitDefault() && v.FieldByIndex(c.Index).IsZero()
}

// Update 按主键更新全部持久化列
func (b *Builder) Update(s *schema.Schema, r any) (string, error) {
	v, err := record(s, r)
	if err != nil {
		return "", err
	}
	id := v.FieldByIndex(s.Identity.Index).Interface()
	return b.update(s, v, expr.Self().Eq(id))
}

// UpdateWhere 以记录的值批量更新满足条件的行
func (b *Builder) UpdateWhere(s *schema.Schema, r any, pred expr.Expr) (string, error) {
	v, err := record(s, r)
	if err != nil {
		return "", err
	}
	return b.update(s, v, pred)
}

func (b *Builder) update(s *schema.Schema, v reflect.Value, pred expr.Expr) (string, error) {
	var sets []string
	for _, c := range s.Writable() {
		if c.AlwaysDefault || b.omitDefault(c, v) {
			continue
		}
		val, err := b.columnValue(c, v)
		if err != nil {
			return "", err
		}
		sets = append(sets, b.dialect.Quote(c.Name)+" = "+val)
	}
	for _, fk := range s.ForeignKeys {
		val, err := b.foreignKeyValue(fk, v)
		if err != nil {
			return "", err
		}
		sets = append(sets, b.dialect.Quote(fk.Column)+" = "+val)
	}
	if len(sets) == 0 {
		return "", errors.WithMessagef(ErrInvalidQuery, "%v has no writable column", s.Type)
	}

	return b.updateSet(s, strings.Join(sets, ", "), "", pred)
}

// UpdateColumn 更新单个列为常量或服务端计算的表达式
func (b *Builder) UpdateColumn(s *schema.Schema, field string, value any, pred expr.Expr) (string, error) {
	col, fk, ok := s.Lookup(field)
	if !ok {
		return "", errors.WithMessagef(expr.ErrUnknownField, "%s has no field %s", s.Type.Name(), field)
	}

	var name string
	var fieldType schema.FieldType
	if col != nil {
		if col.Identity {
			return "", errors.WithMessagef(ErrInvalidQuery, "identity column %s is read only", col.Name)
		}
		name, fieldType = col.Name, col.Type
	} else {
		name, fieldType = fk.Column, foreignKeyType(fk)
	}

	g := NewGraph(s, RootOnly)
	var val string
	var err error
	if e, isExpr := value.(expr.Expr); isExpr {
		val, err = expr.NewCompiler(b.dialect, NewScope(b.dialect, g.Root, nil)).Scalar(e)
	} else {
		val, err = expr.Literal(b.dialect, value, fieldType)
	}
	if err != nil {
		return "", err
	}

	return b.updateSet(s, b.dialect.Quote(name)+" = "+val, "", pred)
}

func (b *Builder) updateSet(s *schema.Schema, sets string, raw string, pred expr.Expr) (string, error) {
	g := NewGraph(s, RootOnly)
	where, err := b.where(s, NewScope(b.dialect, g.Root, nil), raw, pred)
	if err != nil {
		return "", err
	}
	return "UPDATE " + b.dialect.Quote(s.Table) + " SET " + sets + " WHERE " + where, nil
}

// Delete 按记录主键删除
func (b *Builder) Delete(s *schema.Schema, r any) (string, error) {
	v, err := record(s, r)
	if err != nil {
		return "", err
	}
	return b.DeleteByID(s, v.FieldByIndex(s.Identity.Index).Interface())
}

func (b *Builder) DeleteByID(s *schema.Schema, id any) (string, error) {
	return b.delete(s, "", expr.Self().Eq(id))
}

// DeleteByIDs 按主键集合删除
func (b *Builder) DeleteByIDs(s *schema.Schema, ids []any) (string, error) {
	if len(ids) == 0 {
		return "", errors.WithMessage(ErrInvalidQuery, "empty identity set")
	}

	values := make([]string, 0, len(ids))
	for _, id := range ids {
		val, err := expr.Literal(b.dialect, id, s.Identity.Type)
		if err != nil {
			return "", err
		}
		values = append(values, val)
	}
	in := b.dialect.Quote(s.Table) + "." + b.dialect.Quote(s.Identity.Name) + " IN (" + strings.Join(values, ", ") + ")"

	return b.delete(s, in, nil)
}

func (b *Builder) DeleteWhere(s *schema.Schema, pred expr.Expr) (string, error) {
	return b.delete(s, "", pred)
}

// delete 具有软删除能力的记录改为更新删除标记
func (b *Builder) delete(s *schema.Schema, raw string, pred expr.Expr) (string, error) {
	if s.SoftDelete != nil {
		return b.updateSet(s, b.dialect.Quote(s.SoftDelete.Name)+" = 1", raw, pred)
	}

	g := NewGraph(s, RootOnly)
	where, err := b.where(s, NewScope(b.dialect, g.Root, nil), raw, pred)
	if err != nil {
		return "", err
	}
	return "DELETE FROM " + b.dialect.Quote(s.Table) + " WHERE " + where, nil
}

// Truncate 清空整张表
func (b *Builder) Truncate(s *schema.Schema) string {
	return b.dialect.Truncate(s.Table)
}

// columnValue 列值渲染，default 列在值为空时使用数据库默认值
func (b *Builder) columnValue(c *schema.Column, v reflect.Value) (string, error) {
	fv := v.FieldByIndex(c.Index)
	if c.DefaultOnNull && fv.IsZero() {
		return b.dialect.Default(), nil
	}
	return expr.Literal(b.dialect, fv.Interface(), c.Type)
}

func (b *Builder) foreignKeyValue(fk *schema.ForeignKey, v reflect.Value) (string, error) {
	return expr.Literal(b.dialect, fk.Value(v), foreignKeyType(fk))
}
