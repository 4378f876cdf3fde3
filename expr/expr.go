package expr

import "strings"

// Expr 表达式树节点，节点集合封闭
type Expr interface {
	expr()
}

// Source 字段所属的记录，Secondary 用于连接条件中的另一条记录
type Source int

const (
	Primary Source = iota
	Secondary
)

// Op 比较运算符
type Op string

const (
	OpEq Op = "="
	OpNe Op = "<>"
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// LogicalOp 逻辑运算符
type LogicalOp string

const (
	OpAnd LogicalOp = "AND"
	OpOr  LogicalOp = "OR"
)

// Const 常量
type Const struct {
	Value any
}

// Field 字段访问，Path 为沿外键字段的路径，如 Author.Country.Name
type Field struct {
	Path   []string
	Source Source
}

// Compare 二元比较
type Compare struct {
	Op    Op
	Left  Expr
	Right Expr
}

// Logical 二元逻辑运算
type Logical struct {
	Op    LogicalOp
	Left  Expr
	Right Expr
}

// Negate 逻辑非
type Negate struct {
	Operand Expr
}

// Identity 记录自身，投影时编译为记录的主键
type Identity struct {
	Source Source
}

// Coalesce 多个排序表达式合并
type Coalesce struct {
	Exprs []Expr
}

func (*Const) expr()    {}
func (*Field) expr()    {}
func (*Compare) expr()  {}
func (*Logical) expr()  {}
func (*Negate) expr()   {}
func (*Identity) expr() {}
func (*Coalesce) expr() {}

func (f *Field) String() string {
	return strings.Join(f.Path, ".")
}
