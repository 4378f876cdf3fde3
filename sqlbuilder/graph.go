package sqlbuilder

import (
	"time"

	"github.com/hatlonely/rdbx/dialect"
	"github.com/hatlonely/rdbx/expr"
	"github.com/hatlonely/rdbx/schema"
	"github.com/pkg/errors"
)

// Node 连接图中的一次出现
type Node struct {
	Schema   *schema.Schema
	Alias    string
	Parent   *Node
	FK       *schema.ForeignKey // 从父节点到本节点的外键，根节点为 nil
	Children []*Node
	Depth    int

	children map[string]*Node
}

// Child 按外键字段名取子节点，未连接时返回 nil
func (n *Node) Child(field string) *Node {
	return n.children[field]
}

// Graph 以深度优先顺序展开外键得到的连接图
type Graph struct {
	Root  *Node
	Nodes []*Node // 先序
	// 读取 datetime 文本使用的时区，nil 为 time.Local
	Location *time.Location
}

// RootOnly 传给 NewGraph 的 maxDepth，表示不展开任何外键
const RootOnly = -1

// NewGraph 深度优先展开记录外键，按声明顺序为每个节点分配别名
// 同一外键在根到当前节点的路径上只展开一次，自引用和循环引用因此有界
// maxDepth 为 0 表示不限深度，RootOnly 表示只有根节点
func NewGraph(s *schema.Schema, maxDepth int) *Graph {
	root := &Node{Schema: s, Alias: s.Table, children: map[string]*Node{}}
	g := &Graph{Root: root, Nodes: []*Node{root}}
	if maxDepth == RootOnly {
		return g
	}

	alloc := NewAllocator(s.Table)
	onPath := map[*schema.ForeignKey]bool{}

	var walk func(n *Node)
	walk = func(n *Node) {
		if maxDepth > 0 && n.Depth >= maxDepth {
			return
		}
		for _, fk := range n.Schema.ForeignKeys {
			if fk.IsEnum() || onPath[fk] {
				continue
			}
			child := &Node{
				Schema:   fk.Target,
				Alias:    alloc.Next(fk.Target.Table),
				Parent:   n,
				FK:       fk,
				Depth:    n.Depth + 1,
				children: map[string]*Node{},
			}
			n.Children = append(n.Children, child)
			n.children[fk.Field] = child
			g.Nodes = append(g.Nodes, child)

			onPath[fk] = true
			walk(child)
			delete(onPath, fk)
		}
	}
	walk(root)

	return g
}

// NewScope 以 primary 为主记录、secondary 为连接另一侧记录的字段解析器
func NewScope(d *dialect.Dialect, primary, secondary *Node) expr.Resolver {
	return &scope{dialect: d, primary: primary, secondary: secondary}
}

type scope struct {
	dialect   *dialect.Dialect
	primary   *Node
	secondary *Node
}

func (sc *scope) node(src expr.Source) (*Node, error) {
	n := sc.primary
	if src == expr.Secondary {
		n = sc.secondary
	}
	if n == nil {
		return nil, errors.WithMessage(expr.ErrUnknownField, "no record bound to secondary source")
	}
	return n, nil
}

func (sc *scope) ResolveIdentity(src expr.Source) (expr.Ref, error) {
	n, err := sc.node(src)
	if err != nil {
		return expr.Ref{}, err
	}
	return sc.columnRef(n, n.Schema.Identity.Name, n.Schema.Identity.Type), nil
}

func (sc *scope) ResolveField(f *expr.Field) (expr.Ref, error) {
	n, err := sc.node(f.Source)
	if err != nil {
		return expr.Ref{}, err
	}
	if len(f.Path) == 0 {
		return expr.Ref{}, errors.WithMessage(expr.ErrUnknownField, "empty path")
	}

	for i, name := range f.Path {
		col, fk, ok := n.Schema.Lookup(name)
		if !ok {
			return expr.Ref{}, errors.WithMessagef(expr.ErrUnknownField, "%s has no field %s", n.Schema.Type.Name(), name)
		}
		last := i == len(f.Path)-1

		if col != nil {
			if !last {
				return expr.Ref{}, errors.WithMessagef(expr.ErrUnknownField, "%s is not a foreign key", f)
			}
			return sc.columnRef(n, col.Name, col.Type), nil
		}

		// 路径终止于外键时比较的是本表外键列
		if last {
			return sc.columnRef(n, fk.Column, foreignKeyType(fk)), nil
		}
		if fk.IsEnum() {
			return expr.Ref{}, errors.WithMessagef(expr.ErrUnknownField, "%s: cannot traverse enum %s", f, name)
		}

		child := n.Child(fk.Field)
		if child == nil {
			// 目标主键就是本表外键列，无需连接
			if i == len(f.Path)-2 {
				if c, ok := fk.Target.Column(f.Path[i+1]); ok && c.Identity {
					return sc.columnRef(n, fk.Column, c.Type), nil
				}
			}
			return expr.Ref{}, errors.WithMessagef(expr.ErrJoinRequired, "%s", f)
		}
		n = child
	}

	return expr.Ref{}, errors.WithMessagef(expr.ErrUnknownField, "%s", f)
}

func (sc *scope) columnRef(n *Node, column string, t schema.FieldType) expr.Ref {
	return expr.Ref{SQL: sc.dialect.Quote(n.Alias) + "." + sc.dialect.Quote(column), Type: t}
}

func foreignKeyType(fk *schema.ForeignKey) schema.FieldType {
	if fk.IsEnum() {
		return schema.FieldTypeInt
	}
	return fk.Target.Identity.Type
}
