package materialize

import (
	"iter"
	"reflect"
	"time"

	"github.com/hatlonely/rdbx/sqlbuilder"
	"github.com/pkg/errors"
)

// Scanner 类型化的结果读取，所有形态都只读一遍游标
type Scanner[T any] struct {
	m *Materializer
}

func NewScanner[T any](g *sqlbuilder.Graph) (*Scanner[T], error) {
	if g.Root.Schema.Type != reflect.TypeFor[T]() {
		return nil, errors.Errorf("graph of %v cannot scan %v", g.Root.Schema.Type, reflect.TypeFor[T]())
	}
	return &Scanner[T]{m: New(g)}, nil
}

// Each 逐行读取并交给 fn，任一行出错即中止，结束时关闭游标
func (s *Scanner[T]) Each(rows Rows, fn func(*T) error) error {
	defer rows.Close()

	c, err := newCursor(rows)
	if err != nil {
		return err
	}

	for rows.Next() {
		if err := c.scan(); err != nil {
			return err
		}
		v, err := s.m.record(c)
		if err != nil {
			return err
		}
		if err := fn(v.Interface().(*T)); err != nil {
			return err
		}
	}

	return errors.Wrap(rows.Err(), "rows.Err")
}

var errStop = errors.New("stop")

// One 第一行，没有结果时返回 nil, nil
func (s *Scanner[T]) One(rows Rows) (*T, error) {
	var result *T
	err := s.Each(rows, func(v *T) error {
		result = v
		return errStop
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return result, nil
}

func (s *Scanner[T]) List(rows Rows) ([]*T, error) {
	var result []*T
	if err := s.Each(rows, func(v *T) error {
		result = append(result, v)
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// Array 填充调用方提供的定长数组，返回实际填充数量
func (s *Scanner[T]) Array(rows Rows, dst []*T) (int, error) {
	n := 0
	err := s.Each(rows, func(v *T) error {
		if n >= len(dst) {
			return errStop
		}
		dst[n] = v
		n++
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return n, err
	}
	return n, nil
}

// Seq 惰性序列，提前结束迭代时关闭游标
func (s *Scanner[T]) Seq(rows Rows) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		err := s.Each(rows, func(v *T) error {
			if !yield(v, nil) {
				return errStop
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStop) {
			yield(nil, err)
		}
	}
}

// Map 以调用方提供的投影构造键值
func Map[T any, K comparable, V any](s *Scanner[T], rows Rows, key func(*T) K, value func(*T) V) (map[K]V, error) {
	result := map[K]V{}
	if err := s.Each(rows, func(v *T) error {
		result[key(v)] = value(v)
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

func Set[T any, K comparable](s *Scanner[T], rows Rows, key func(*T) K) (map[K]struct{}, error) {
	result := map[K]struct{}{}
	if err := s.Each(rows, func(v *T) error {
		result[key(v)] = struct{}{}
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// Values 读取单列结果，用于投影与计数
func Values[V any](rows Rows) ([]V, error) {
	return ValuesIn[V](rows, nil)
}

// ValuesIn 同 Values，时间文本按 loc 解析
func ValuesIn[V any](rows Rows, loc *time.Location) ([]V, error) {
	defer rows.Close()

	var result []V
	for rows.Next() {
		var raw any
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.Wrap(err, "rows.Scan failed")
		}
		var v V
		if err := assign(reflect.ValueOf(&v).Elem(), raw, valueType(reflect.TypeFor[V]()), loc); err != nil {
			return nil, err
		}
		result = append(result, v)
	}

	return result, errors.Wrap(rows.Err(), "rows.Err")
}
