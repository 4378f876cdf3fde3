package materialize

import (
	"reflect"

	"github.com/hatlonely/rdbx/schema"
	"github.com/hatlonely/rdbx/sqlbuilder"
	"github.com/pkg/errors"
)

// Rows 结果游标，*sql.Rows 满足该接口
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Materializer 沿连接图把一行扁平结果还原为嵌套记录
type Materializer struct {
	graph *sqlbuilder.Graph
}

// New 使用与构造语句相同方式得到的连接图
func New(g *sqlbuilder.Graph) *Materializer {
	return &Materializer{graph: g}
}

// cursor 按标签定位列
type cursor struct {
	rows   Rows
	index  map[string]int
	values []any
	ptrs   []any
}

func newCursor(rows Rows) (*cursor, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "rows.Columns failed")
	}

	c := &cursor{
		rows:   rows,
		index:  make(map[string]int, len(columns)),
		values: make([]any, len(columns)),
		ptrs:   make([]any, len(columns)),
	}
	for i, name := range columns {
		c.index[name] = i
		c.ptrs[i] = &c.values[i]
	}
	return c, nil
}

func (c *cursor) scan() error {
	for i := range c.values {
		c.values[i] = nil
	}
	return errors.Wrap(c.rows.Scan(c.ptrs...), "rows.Scan failed")
}

func (c *cursor) value(label string) (any, error) {
	i, ok := c.index[label]
	if !ok {
		return nil, errors.WithMessagef(ErrMissingColumn, "label %s", label)
	}
	return c.values[i], nil
}

// record 从当前行构造根记录
func (m *Materializer) record(c *cursor) (reflect.Value, error) {
	root := m.graph.Root
	v := reflect.New(root.Schema.Type)
	if err := m.fill(c, root, v.Elem()); err != nil {
		return reflect.Value{}, err
	}
	return v, nil
}

func (m *Materializer) fill(c *cursor, n *sqlbuilder.Node, dst reflect.Value) error {
	for _, col := range n.Schema.Columns {
		raw, err := c.value(sqlbuilder.Label(n.Alias, col.Name))
		if err != nil {
			return err
		}
		if err := assign(dst.FieldByIndex(col.Index), raw, col.Type, m.graph.Location); err != nil {
			return errors.WithMessagef(err, "%s.%s", n.Schema.Type.Name(), col.Field)
		}
	}

	for _, fk := range n.Schema.ForeignKeys {
		raw, err := c.value(sqlbuilder.Label(n.Alias, fk.Column))
		if err != nil {
			return err
		}
		// 外键为空时字段保持未设置
		if raw == nil {
			continue
		}

		field := dst.FieldByIndex(fk.Index)
		if fk.IsEnum() {
			id, err := toInt64(raw)
			if err != nil {
				return errors.WithMessagef(err, "%s.%s", n.Schema.Type.Name(), fk.Field)
			}
			if member, ok := fk.Enum.Member(id); ok {
				setMember(field, member)
			}
			continue
		}

		child := n.Child(fk.Field)
		if child == nil {
			continue
		}
		// 目标行不存在或被连接条件过滤
		id, err := c.value(sqlbuilder.Label(child.Alias, child.Schema.Identity.Name))
		if err != nil {
			return err
		}
		if id == nil {
			continue
		}

		target := reflect.New(child.Schema.Type)
		if err := m.fill(c, child, target.Elem()); err != nil {
			return err
		}
		if field.Kind() == reflect.Ptr {
			field.Set(target)
		} else {
			field.Set(target.Elem())
		}
	}

	return nil
}

func setMember(field, member reflect.Value) {
	switch {
	case member.Type().AssignableTo(field.Type()):
		field.Set(member)
	case field.Kind() == reflect.Ptr && member.Type().AssignableTo(field.Type().Elem()):
		p := reflect.New(field.Type().Elem())
		p.Elem().Set(member)
		field.Set(p)
	case member.Kind() == reflect.Ptr && member.Elem().Type().AssignableTo(field.Type()):
		field.Set(member.Elem())
	}
}

// valueType 标量投影结果的列类型
func valueType(t reflect.Type) schema.FieldType {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == timeType {
		return schema.FieldTypeDateTime
	}
	return ""
}
