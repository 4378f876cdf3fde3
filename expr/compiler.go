package expr

import (
	"reflect"
	"strings"

	"github.com/hatlonely/rdbx/dialect"
	"github.com/hatlonely/rdbx/schema"
	"github.com/pkg/errors"
)

// Ref 字段解析结果
type Ref struct {
	SQL  string           // `alias`.`column`
	Type schema.FieldType // 列类型，用于常量渲染
}

// Resolver 把字段路径解析为带别名的列引用
type Resolver interface {
	ResolveField(f *Field) (Ref, error)
	ResolveIdentity(src Source) (Ref, error)
}

// Compiler 表达式编译器，无状态，可并发使用
type Compiler struct {
	dialect  *dialect.Dialect
	resolver Resolver
}

func NewCompiler(d *dialect.Dialect, resolver Resolver) *Compiler {
	return &Compiler{dialect: d, resolver: resolver}
}

// Predicate 编译布尔表达式
func (c *Compiler) Predicate(e Expr) (string, error) {
	return c.compile(e, true)
}

// Conjunct 编译作为 AND 操作数的布尔表达式，OR 会加括号
func (c *Compiler) Conjunct(e Expr) (string, error) {
	return c.compile(e, false)
}

// Scalar 编译投影/分组用的标量表达式
func (c *Compiler) Scalar(e Expr) (string, error) {
	return c.compile(e, true)
}

// Order 编译一个排序项，多于一个表达式时合并为 COALESCE
func (c *Compiler) Order(exprs ...Expr) (string, error) {
	switch len(exprs) {
	case 0:
		return "", errors.WithMessage(ErrInvalidExpr, "empty order expression")
	case 1:
		return c.compile(exprs[0], true)
	}
	return c.compile(&Coalesce{Exprs: exprs}, true)
}

func (c *Compiler) compile(e Expr, outermost bool) (string, error) {
	switch n := e.(type) {
	case nil:
		return "", errors.WithMessage(ErrInvalidExpr, "nil expression")
	case *Const:
		return Literal(c.dialect, n.Value, "")
	case *Field:
		ref, err := c.resolver.ResolveField(n)
		return ref.SQL, err
	case *Identity:
		ref, err := c.resolver.ResolveIdentity(n.Source)
		return ref.SQL, err
	case *Compare:
		return c.compare(n)
	case *Logical:
		left, err := c.compile(n.Left, false)
		if err != nil {
			return "", err
		}
		right, err := c.compile(n.Right, false)
		if err != nil {
			return "", err
		}
		s := left + " " + string(n.Op) + " " + right
		// AND 与 SQL 默认优先级一致，只有非最外层的 OR 需要括号
		if n.Op == OpOr && !outermost {
			return "(" + s + ")", nil
		}
		return s, nil
	case *Negate:
		operand, err := c.compile(n.Operand, true)
		if err != nil {
			return "", err
		}
		if _, ok := n.Operand.(*Logical); ok {
			return "NOT (" + operand + ")", nil
		}
		return "NOT " + operand, nil
	case *Coalesce:
		if len(n.Exprs) == 0 {
			return "", errors.WithMessage(ErrInvalidExpr, "empty coalesce")
		}
		if len(n.Exprs) == 1 {
			return c.compile(n.Exprs[0], outermost)
		}
		parts := make([]string, 0, len(n.Exprs))
		for _, sub := range n.Exprs {
			s, err := c.compile(sub, true)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "COALESCE(" + strings.Join(parts, ", ") + ")", nil
	}

	return "", errors.WithMessagef(ErrInvalidExpr, "unknown node %T", e)
}

func (c *Compiler) compare(n *Compare) (string, error) {
	left, leftType, err := c.operand(n.Left)
	if err != nil {
		return "", err
	}
	right, rightType, err := c.operand(n.Right)
	if err != nil {
		return "", err
	}

	// 常量按另一侧列的类型渲染
	if k, ok := n.Left.(*Const); ok {
		if left, err = Literal(c.dialect, k.Value, rightType); err != nil {
			return "", err
		}
	}
	if k, ok := n.Right.(*Const); ok {
		if isNull(k) {
			switch n.Op {
			case OpEq:
				return left + " IS NULL", nil
			case OpNe:
				return left + " IS NOT NULL", nil
			}
		}
		if right, err = Literal(c.dialect, k.Value, leftType); err != nil {
			return "", err
		}
	}

	return left + " " + string(n.Op) + " " + right, nil
}

// operand 比较运算的操作数，逻辑表达式加括号
func (c *Compiler) operand(e Expr) (string, schema.FieldType, error) {
	switch n := e.(type) {
	case *Const:
		return "", "", nil
	case *Field:
		ref, err := c.resolver.ResolveField(n)
		return ref.SQL, ref.Type, err
	case *Identity:
		ref, err := c.resolver.ResolveIdentity(n.Source)
		return ref.SQL, ref.Type, err
	case *Logical, *Negate:
		s, err := c.compile(e, true)
		return "(" + s + ")", "", err
	}
	s, err := c.compile(e, false)
	return s, "", err
}

func isNull(k *Const) bool {
	if k.Value == nil {
		return true
	}
	rv := reflect.ValueOf(k.Value)
	return (rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface) && rv.IsNil()
}
