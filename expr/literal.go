package expr

import (
	"database/sql/driver"
	"encoding/hex"
	"reflect"
	"strconv"
	"time"

	"github.com/hatlonely/rdbx/dialect"
	"github.com/hatlonely/rdbx/schema"
	"github.com/pkg/errors"
)

const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Literal 把常量渲染为 SQL 字面量，t 为比较对象的列类型，未知时为空
func Literal(d *dialect.Dialect, v any, t schema.FieldType) (string, error) {
	if v == nil {
		return "NULL", nil
	}

	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface) && rv.IsNil() {
		return "NULL", nil
	}

	switch val := v.(type) {
	case string:
		return d.QuoteString(val), nil
	case bool:
		if val {
			return "1", nil
		}
		return "0", nil
	case int:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case time.Time:
		return d.QuoteString(formatTime(val, t, d.Loc())), nil
	case []byte:
		return "X'" + hex.EncodeToString(val) + "'", nil
	case driver.Valuer:
		dv, err := val.Value()
		if err != nil {
			return "", errors.WithMessagef(ErrUnsupportedValue, "%T: %v", v, err)
		}
		return Literal(d, dv, t)
	}

	if id, ok := schema.IdentityOf(v); ok {
		return Literal(d, id, t)
	}

	switch rv.Kind() {
	case reflect.Ptr:
		return Literal(d, rv.Elem().Interface(), t)
	case reflect.String:
		return d.QuoteString(rv.String()), nil
	case reflect.Bool:
		return Literal(d, rv.Bool(), t)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	}

	return "", errors.WithMessagef(ErrUnsupportedValue, "%T", v)
}

// formatTime datetime 换算到连接时区，date/time 是日历值，保留字面上的日期与钟点
func formatTime(v time.Time, t schema.FieldType, loc *time.Location) string {
	switch t {
	case schema.FieldTypeDate:
		return v.Format(DateLayout)
	case schema.FieldTypeTime:
		return v.Format(TimeLayout)
	default:
		return v.In(loc).Format(DateTimeLayout)
	}
}
