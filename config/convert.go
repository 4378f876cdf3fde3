package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	durationType = reflect.TypeFor[time.Duration]()
	timeType     = reflect.TypeFor[time.Time]()
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Convert 将解码得到的通用数据转换为结构体，字段名取 cfg tag，匹配时忽略大小写
func Convert(src any, object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("object must be a non-nil pointer")
	}
	return convertValue(src, rv.Elem())
}

func convertValue(src any, dst reflect.Value) error {
	sv := reflect.ValueOf(src)
	if !sv.IsValid() {
		return nil
	}

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return convertValue(src, dst.Elem())
	}

	switch dst.Type() {
	case durationType:
		return convertDuration(sv, dst)
	case timeType:
		return convertTime(sv, dst)
	}

	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}

	switch dst.Kind() {
	case reflect.Struct:
		return convertStruct(sv, dst)
	case reflect.Map:
		return convertMap(sv, dst)
	case reflect.Slice:
		return convertSlice(sv, dst)
	case reflect.Interface:
		if dst.Type().NumMethod() == 0 {
			dst.Set(sv)
			return nil
		}
	}

	// 数值之间互转，字符串与数值之间不转
	if isNumber(sv.Kind()) && isNumber(dst.Kind()) {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	if sv.Kind() == reflect.String && dst.Kind() == reflect.String {
		dst.SetString(sv.String())
		return nil
	}

	return errors.Errorf("cannot convert %v to %v", sv.Type(), dst.Type())
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// convertDuration 字符串按 time.ParseDuration 解析，整数视为纳秒，浮点数视为秒
func convertDuration(sv, dst reflect.Value) error {
	switch sv.Kind() {
	case reflect.String:
		d, err := time.ParseDuration(sv.String())
		if err != nil {
			return errors.Wrapf(err, "parse duration %q failed", sv.String())
		}
		dst.SetInt(int64(d))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.SetInt(sv.Int())
		return nil
	case reflect.Float32, reflect.Float64:
		dst.SetInt(int64(sv.Float() * float64(time.Second)))
		return nil
	}
	return errors.Errorf("cannot convert %v to time.Duration", sv.Type())
}

func convertTime(sv, dst reflect.Value) error {
	if t, ok := sv.Interface().(time.Time); ok {
		dst.Set(reflect.ValueOf(t))
		return nil
	}
	if sv.Kind() != reflect.String {
		return errors.Errorf("cannot convert %v to time.Time", sv.Type())
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, sv.String()); err == nil {
			dst.Set(reflect.ValueOf(t))
			return nil
		}
	}
	return errors.Errorf("parse time %q failed", sv.String())
}

func convertStruct(sv, dst reflect.Value) error {
	if sv.Kind() != reflect.Map {
		return errors.Errorf("cannot convert %v to %v", sv.Type(), dst.Type())
	}

	keys := map[string]reflect.Value{}
	for _, key := range sv.MapKeys() {
		if key.Kind() == reflect.Interface {
			key = key.Elem()
		}
		if key.Kind() == reflect.String {
			keys[strings.ToLower(key.String())] = sv.MapIndex(key)
		}
	}

	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Tag.Get("cfg")
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}

		v, ok := keys[strings.ToLower(name)]
		if !ok {
			continue
		}
		if err := convertValue(v.Interface(), dst.Field(i)); err != nil {
			return errors.WithMessagef(err, "field %s", field.Name)
		}
	}

	return nil
}

func convertMap(sv, dst reflect.Value) error {
	if sv.Kind() != reflect.Map {
		return errors.Errorf("cannot convert %v to %v", sv.Type(), dst.Type())
	}

	if dst.IsNil() {
		dst.Set(reflect.MakeMap(dst.Type()))
	}

	keyType := dst.Type().Key()
	for _, key := range sv.MapKeys() {
		k := reflect.New(keyType).Elem()
		if err := convertValue(key.Interface(), k); err != nil {
			return errors.WithMessage(err, "map key")
		}
		v := reflect.New(dst.Type().Elem()).Elem()
		if err := convertValue(sv.MapIndex(key).Interface(), v); err != nil {
			return errors.WithMessagef(err, "map value %v", key.Interface())
		}
		dst.SetMapIndex(k, v)
	}

	return nil
}

func convertSlice(sv, dst reflect.Value) error {
	if sv.Kind() != reflect.Slice && sv.Kind() != reflect.Array {
		return errors.Errorf("cannot convert %v to %v", sv.Type(), dst.Type())
	}

	n := sv.Len()
	dst.Set(reflect.MakeSlice(dst.Type(), n, n))
	for i := 0; i < n; i++ {
		if err := convertValue(sv.Index(i).Interface(), dst.Index(i)); err != nil {
			return errors.WithMessagef(err, "index %d", i)
		}
	}

	return nil
}
