package schema

import (
	"reflect"
)

// Indirect 解引用到结构体值，空指针返回无效值
func Indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// IdentityValue 返回记录的主键值
func (s *Schema) IdentityValue(record any) (any, bool) {
	v := Indirect(reflect.ValueOf(record))
	if !v.IsValid() || v.Type() != s.Type {
		return nil, false
	}
	return v.FieldByIndex(s.Identity.Index).Interface(), true
}

// IdentityOf 返回枚举成员或已知记录的标识
func IdentityOf(value any) (any, bool) {
	if value == nil {
		return nil, false
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil, false
	}

	if _, ok := lookupEnum(rv.Type()); ok {
		return rv.Interface().(Identifiable).Identity(), true
	}

	v := Indirect(rv)
	if v.Kind() != reflect.Struct {
		return nil, false
	}
	s, err := OfType(v.Type())
	if err != nil {
		return nil, false
	}
	return v.FieldByIndex(s.Identity.Index).Interface(), true
}

// Value 外键列的值：目标的标识，未设置时为 nil
func (fk *ForeignKey) Value(record reflect.Value) any {
	fv := record.FieldByIndex(fk.Index)
	if (fv.Kind() == reflect.Ptr || fv.Kind() == reflect.Interface) && fv.IsNil() {
		return nil
	}
	if fk.IsEnum() {
		return fv.Interface().(Identifiable).Identity()
	}
	target := Indirect(fv)
	return target.FieldByIndex(fk.Target.Identity.Index).Interface()
}
