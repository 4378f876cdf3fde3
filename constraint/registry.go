package constraint

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/hatlonely/rdbx/expr"
	"github.com/hatlonely/rdbx/schema"
)

// Registry 按记录类型保存默认过滤条件
// 注册应在初始化阶段完成，解析可以并发调用
type Registry struct {
	mu         sync.Mutex
	generation atomic.Int64
	own        sync.Map // reflect.Type -> expr.Expr
	resolved   sync.Map // reflect.Type -> *resolution
}

type resolution struct {
	generation int64
	expr       expr.Expr
}

func NewRegistry() *Registry {
	return &Registry{}
}

var defaultRegistry = NewRegistry()

// Default 进程级默认注册表
func Default() *Registry {
	return defaultRegistry
}

// Register 为类型注册条件，多次注册以 AND 组合
func (r *Registry) Register(t reflect.Type, e expr.Expr) {
	if e == nil {
		return
	}
	t = indirect(t)

	r.mu.Lock()
	defer r.mu.Unlock()

	var composed expr.Expr = e
	if old, ok := r.own.Load(t); ok {
		composed = expr.And(old.(expr.Expr), e)
	}
	r.own.Store(t, composed)
	r.generation.Add(1)
}

// Own 类型自身注册的条件，不含父类型
func (r *Registry) Own(t reflect.Type) expr.Expr {
	if v, ok := r.own.Load(indirect(t)); ok {
		return v.(expr.Expr)
	}
	return nil
}

// Resolve 类型自身条件与所有父类型条件的 AND，没有任何条件时返回 nil
func (r *Registry) Resolve(t reflect.Type) expr.Expr {
	t = indirect(t)
	generation := r.generation.Load()
	if v, ok := r.resolved.Load(t); ok {
		if res := v.(*resolution); res.generation == generation {
			return res.expr
		}
	}

	e := r.resolve(t)
	r.resolved.Store(t, &resolution{generation: generation, expr: e})
	return e
}

func (r *Registry) resolve(t reflect.Type) expr.Expr {
	exprs := []expr.Expr{r.Own(t)}
	for _, parent := range schema.Parents(t) {
		exprs = append(exprs, r.resolve(parent))
	}
	return expr.And(exprs...)
}

// Register 向默认注册表注册
func Register[T any](e expr.Expr) {
	defaultRegistry.Register(reflect.TypeFor[T](), e)
}

// Resolve 从默认注册表解析
func Resolve[T any]() expr.Expr {
	return defaultRegistry.Resolve(reflect.TypeFor[T]())
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
