package config

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// SetDefaults 为零值字段填充 def tag 指定的默认值，递归处理嵌套结构体
func SetDefaults(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("object must be a non-nil pointer")
	}
	return setDefaults(rv.Elem())
}

func setDefaults(rv reflect.Value) error {
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct || rv.Type() == timeType {
		return nil
	}

	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := rv.Field(i)
		if !fv.CanSet() {
			continue
		}

		if fv.Kind() == reflect.Struct || fv.Kind() == reflect.Ptr {
			if err := setDefaults(fv); err != nil {
				return errors.WithMessagef(err, "field %s", field.Name)
			}
		}

		def, ok := field.Tag.Lookup("def")
		if !ok || !fv.IsZero() {
			continue
		}
		if err := setDefault(fv, def); err != nil {
			return errors.WithMessagef(err, "field %s", field.Name)
		}
	}

	return nil
}

func setDefault(rv reflect.Value, def string) error {
	if rv.Type() == durationType {
		d, err := time.ParseDuration(def)
		if err != nil {
			return errors.Wrapf(err, "invalid duration %q", def)
		}
		rv.SetInt(int64(d))
		return nil
	}

	switch rv.Kind() {
	case reflect.String:
		rv.SetString(def)
	case reflect.Bool:
		v, err := strconv.ParseBool(def)
		if err != nil {
			return errors.Wrapf(err, "invalid bool %q", def)
		}
		rv.SetBool(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(def, 0, rv.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid int %q", def)
		}
		rv.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(def, 0, rv.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid uint %q", def)
		}
		rv.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(def, rv.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid float %q", def)
		}
		rv.SetFloat(v)
	case reflect.Slice:
		if rv.Type().Elem().Kind() != reflect.String {
			return errors.Errorf("unsupported default for %v", rv.Type())
		}
		parts := strings.Split(def, ",")
		s := reflect.MakeSlice(rv.Type(), len(parts), len(parts))
		for i, p := range parts {
			s.Index(i).SetString(strings.TrimSpace(p))
		}
		rv.Set(s)
	default:
		return errors.Errorf("unsupported default for %v", rv.Type())
	}

	return nil
}
