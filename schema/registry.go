package schema

import (
	"reflect"
	"sync"
)

var (
	schemas sync.Map
	buildMu sync.Mutex
)

// Register 在初始化阶段注册记录类型，使 schema 错误在查询前暴露
func Register[T any]() error {
	_, err := Of[T]()
	return err
}

func MustRegister[T any]() *Schema {
	s, err := Of[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// Of 获取记录类型的 schema，首次调用时构建并缓存
func Of[T any]() (*Schema, error) {
	return OfType(reflect.TypeFor[T]())
}

func OfType(t reflect.Type) (*Schema, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if v, ok := schemas.Load(t); ok {
		return v.(*Schema), nil
	}

	buildMu.Lock()
	defer buildMu.Unlock()

	if v, ok := schemas.Load(t); ok {
		return v.(*Schema), nil
	}

	b := newBuilder()
	s, err := b.build(t)
	if err != nil {
		return nil, err
	}
	if err := b.verify(); err != nil {
		return nil, err
	}

	// 一次构建中的所有 schema 同时可见，循环引用的目标不会被部分发布
	for _, bt := range b.order {
		schemas.Store(bt, b.building[bt])
	}

	return s, nil
}
