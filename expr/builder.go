package expr

import "strings"

// F 主记录上的字段，路径用 . 分隔
func F(path string) *Field {
	return &Field{Path: strings.Split(path, ".")}
}

// Other 连接条件中另一条记录上的字段
func Other(path string) *Field {
	return &Field{Path: strings.Split(path, "."), Source: Secondary}
}

// Val 常量
func Val(v any) *Const {
	return &Const{Value: v}
}

// Self 记录自身
func Self() *Identity {
	return &Identity{}
}

func operand(v any) Expr {
	if e, ok := v.(Expr); ok {
		return e
	}
	return &Const{Value: v}
}

func (f *Field) Eq(v any) Expr { return &Compare{Op: OpEq, Left: f, Right: operand(v)} }
func (f *Field) Ne(v any) Expr { return &Compare{Op: OpNe, Left: f, Right: operand(v)} }
func (f *Field) Lt(v any) Expr { return &Compare{Op: OpLt, Left: f, Right: operand(v)} }
func (f *Field) Le(v any) Expr { return &Compare{Op: OpLe, Left: f, Right: operand(v)} }
func (f *Field) Gt(v any) Expr { return &Compare{Op: OpGt, Left: f, Right: operand(v)} }
func (f *Field) Ge(v any) Expr { return &Compare{Op: OpGe, Left: f, Right: operand(v)} }

func (f *Field) IsNull() Expr  { return f.Eq(nil) }
func (f *Field) NotNull() Expr { return f.Ne(nil) }

func (i *Identity) Eq(v any) Expr { return &Compare{Op: OpEq, Left: i, Right: operand(v)} }
func (i *Identity) Ne(v any) Expr { return &Compare{Op: OpNe, Left: i, Right: operand(v)} }

// Cmp 任意两个表达式的比较
func Cmp(left Expr, op Op, right any) Expr {
	return &Compare{Op: op, Left: left, Right: operand(right)}
}

// And 左结合地组合，忽略 nil，全部为 nil 时返回 nil
func And(exprs ...Expr) Expr {
	return fold(OpAnd, exprs)
}

func Or(exprs ...Expr) Expr {
	return fold(OpOr, exprs)
}

func fold(op LogicalOp, exprs []Expr) Expr {
	var result Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if result == nil {
			result = e
			continue
		}
		result = &Logical{Op: op, Left: result, Right: e}
	}
	return result
}

func Not(e Expr) Expr {
	return &Negate{Operand: e}
}

func CoalesceOf(exprs ...Expr) Expr {
	return &Coalesce{Exprs: exprs}
}
