package materialize

import (
	"database/sql"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hatlonely/rdbx/schema"
	"github.com/pkg/errors"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

// datetime 列可能返回的字符串格式
var dateTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// assign 把驱动返回的值写入字段，字段必须可寻址
// loc 为解析不带时区的时间文本使用的时区，nil 为 time.Local
func assign(field reflect.Value, raw any, t schema.FieldType, loc *time.Location) error {
	if raw == nil {
		field.SetZero()
		return nil
	}

	if field.Kind() == reflect.Ptr {
		elem := reflect.New(field.Type().Elem())
		if err := assign(elem.Elem(), raw, t, loc); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	if field.Type() != timeType && field.Addr().Type().Implements(scannerType) {
		return field.Addr().Interface().(sql.Scanner).Scan(raw)
	}

	if field.Type() == timeType {
		v, err := parseTemporal(raw, t, loc)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(v))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		switch v := raw.(type) {
		case []byte:
			field.SetString(string(v))
			return nil
		case string:
			field.SetString(v)
			return nil
		case time.Time:
			field.SetString(formatTemporal(v, t))
			return nil
		}
	case reflect.Bool:
		switch v := raw.(type) {
		case bool:
			field.SetBool(v)
			return nil
		case int64:
			field.SetBool(v != 0)
			return nil
		case []byte, string:
			b, err := strconv.ParseBool(text(v))
			if err != nil {
				return errors.WithMessagef(ErrConversion, "%q to bool", text(v))
			}
			field.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch v := raw.(type) {
		case int64:
			field.SetInt(v)
			return nil
		case float64:
			field.SetInt(int64(v))
			return nil
		case []byte, string:
			n, err := strconv.ParseInt(text(v), 10, 64)
			if err != nil {
				return errors.WithMessagef(ErrConversion, "%q to int", text(v))
			}
			field.SetInt(n)
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch v := raw.(type) {
		case int64:
			field.SetUint(uint64(v))
			return nil
		case []byte, string:
			n, err := strconv.ParseUint(text(v), 10, 64)
			if err != nil {
				return errors.WithMessagef(ErrConversion, "%q to uint", text(v))
			}
			field.SetUint(n)
			return nil
		}
	case reflect.Float32, reflect.Float64:
		switch v := raw.(type) {
		case float64:
			field.SetFloat(v)
			return nil
		case int64:
			field.SetFloat(float64(v))
			return nil
		case []byte, string:
			f, err := strconv.ParseFloat(text(v), 64)
			if err != nil {
				return errors.WithMessagef(ErrConversion, "%q to float", text(v))
			}
			field.SetFloat(f)
			return nil
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.Uint8 {
			switch v := raw.(type) {
			case []byte:
				field.SetBytes(append([]byte(nil), v...))
				return nil
			case string:
				field.SetBytes([]byte(v))
				return nil
			}
		}
	}

	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(field.Type()) {
		field.Set(rv)
		return nil
	}
	if rv.Type().ConvertibleTo(field.Type()) {
		field.Set(rv.Convert(field.Type()))
		return nil
	}

	return errors.WithMessagef(ErrConversion, "%T to %v", raw, field.Type())
}

// parseTemporal 按列类型解析时间，避免依赖驱动的隐式转换
func parseTemporal(raw any, t schema.FieldType, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case []byte, string:
		s := strings.TrimSpace(text(v))
		var layouts []string
		switch t {
		case schema.FieldTypeDate:
			layouts = []string{"2006-01-02"}
		case schema.FieldTypeTime:
			layouts = []string{"15:04:05.999999999", "15:04:05"}
		default:
			layouts = dateTimeLayouts
		}
		for _, layout := range layouts {
			if parsed, err := time.ParseInLocation(layout, s, loc); err == nil {
				return parsed, nil
			}
		}
		// sqlite 的 date/time 列可能以完整时间戳存储
		if t == schema.FieldTypeDate || t == schema.FieldTypeTime {
			for _, layout := range dateTimeLayouts {
				if parsed, err := time.ParseInLocation(layout, s, loc); err == nil {
					return parsed, nil
				}
			}
		}
		return time.Time{}, errors.WithMessagef(ErrConversion, "cannot parse %s %q", t, s)
	}
	return time.Time{}, errors.WithMessagef(ErrConversion, "%T to time", raw)
}

func formatTemporal(v time.Time, t schema.FieldType) string {
	switch t {
	case schema.FieldTypeDate:
		return v.Format("2006-01-02")
	case schema.FieldTypeTime:
		return v.Format("15:04:05")
	default:
		return v.Format("2006-01-02 15:04:05")
	}
}

func text(v any) string {
	switch s := v.(type) {
	case []byte:
		return string(s)
	case string:
		return s
	}
	return ""
}

func toInt64(raw any) (int64, error) {
	var n int64
	if err := assign(reflect.ValueOf(&n).Elem(), raw, schema.FieldTypeInt, nil); err != nil {
		return 0, err
	}
	return n, nil
}
