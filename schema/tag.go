package schema

import (
	"strings"

	"github.com/pkg/errors"
)

// fieldTag rdb 标签解析结果
// 支持的格式：
// - `rdb:"column_name,pk,assigned,type=date"`
// - `rdb:"author_id,fk,inner"`
// - `rdb:"created_at,default"` / `rdb:"updated_at,always_default"`
// - `rdb:"deleted,softdelete"`
// - `rdb:"-"` 忽略字段
type fieldTag struct {
	name          string
	identity      bool
	assigned      bool
	foreignKey    bool
	join          JoinKind
	fieldType     FieldType
	defaultOnNull bool
	alwaysDefault bool
	softDelete    bool
}

func parseTag(fieldName string, tag string) (*fieldTag, error) {
	ft := &fieldTag{name: fieldName, join: JoinLeft}
	if tag == "" {
		return ft, nil
	}

	parts := strings.Split(tag, ",")
	if name := strings.TrimSpace(parts[0]); name != "" {
		ft.name = name
	}

	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		key, value, _ := strings.Cut(part, "=")
		switch key {
		case "":
		case "pk", "primary":
			ft.identity = true
		case "assigned":
			ft.assigned = true
		case "fk":
			ft.foreignKey = true
		case "inner":
			ft.join = JoinInner
		case "left":
			ft.join = JoinLeft
		case "default":
			ft.defaultOnNull = true
		case "always_default":
			ft.alwaysDefault = true
		case "softdelete":
			ft.softDelete = true
		case "type":
			t, err := parseFieldType(value)
			if err != nil {
				return nil, err
			}
			ft.fieldType = t
		default:
			return nil, errors.WithMessagef(ErrInvalidTag, "field %s: unknown option %q", fieldName, key)
		}
	}

	if ft.foreignKey && (ft.identity || ft.softDelete) {
		return nil, errors.WithMessagef(ErrInvalidTag, "field %s: foreign key cannot be identity or soft delete flag", fieldName)
	}

	return ft, nil
}

func parseFieldType(value string) (FieldType, error) {
	switch t := FieldType(strings.ToLower(value)); t {
	case FieldTypeString, FieldTypeInt, FieldTypeFloat, FieldTypeBool,
		FieldTypeDate, FieldTypeTime, FieldTypeDateTime, FieldTypeBytes, FieldTypeUUID:
		return t, nil
	}
	return "", errors.WithMessagef(ErrInvalidTag, "unknown type %q", value)
}
