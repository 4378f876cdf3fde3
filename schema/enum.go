package schema

import (
	"reflect"
	"sync"
)

// Identifiable 以整数标识自身的封闭枚举
type Identifiable interface {
	Identity() int64
}

// Enum 已注册的封闭枚举及其成员
type Enum struct {
	Type    reflect.Type
	Members []reflect.Value
}

var enums sync.Map

// RegisterEnum 注册封闭枚举的全部成员，需在使用该枚举的记录构建 schema 之前调用
func RegisterEnum[E Identifiable](members ...E) *Enum {
	t := reflect.TypeFor[E]()
	enum := &Enum{Type: t}
	for _, m := range members {
		enum.Members = append(enum.Members, reflect.ValueOf(m))
	}
	enums.Store(t, enum)
	return enum
}

func lookupEnum(t reflect.Type) (*Enum, bool) {
	if v, ok := enums.Load(t); ok {
		return v.(*Enum), true
	}
	if t.Kind() == reflect.Ptr {
		if v, ok := enums.Load(t.Elem()); ok {
			return v.(*Enum), true
		}
	}
	return nil, false
}

// Member 线性扫描成员，返回标识匹配的成员
func (e *Enum) Member(id int64) (reflect.Value, bool) {
	for _, m := range e.Members {
		if m.Interface().(Identifiable).Identity() == id {
			return m, true
		}
	}
	return reflect.Value{}, false
}
