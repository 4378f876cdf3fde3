package schema

import (
	"database/sql"
	"database/sql/driver"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	valuerType  = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

// builder 一次构建过程，building 保存构建中的 schema 以支持循环外键
type builder struct {
	building map[reflect.Type]*Schema
	order    []reflect.Type
}

func newBuilder() *builder {
	return &builder{building: map[reflect.Type]*Schema{}}
}

func (b *builder) build(t reflect.Type) (*Schema, error) {
	if v, ok := schemas.Load(t); ok {
		return v.(*Schema), nil
	}
	if s, ok := b.building[t]; ok {
		return s, nil
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.WithMessagef(ErrNotStruct, "type %v", t)
	}

	s := newSchema(t)
	s.Table = tableName(t)
	b.building[t] = s
	b.order = append(b.order, t)

	if err := b.walk(s, t, nil, true); err != nil {
		return nil, errors.WithMessagef(err, "build schema %v", t)
	}

	return s, nil
}

// verify 所有 schema 字段收集完成后再校验主键，循环引用时目标可能尚未完成
func (b *builder) verify() error {
	for _, t := range b.order {
		s := b.building[t]
		if s.Identity == nil {
			return errors.WithMessagef(ErrMissingIdentity, "type %v", t)
		}
		for _, fk := range s.ForeignKeys {
			if fk.Target != nil && fk.Target.Identity == nil {
				return errors.WithMessagef(ErrInvalidForeignKey, "%v.%s: target %v has no identity", t, fk.Field, fk.Target.Type)
			}
		}
	}
	return nil
}

func (b *builder) walk(s *Schema, t reflect.Type, prefix []int, top bool) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append(make([]int, 0, len(prefix)+1), prefix...), i)

		tag, hasTag := field.Tag.Lookup("rdb")
		if tag == "-" {
			continue
		}

		// 无标签的匿名嵌入结构体视为能力（父类型），展开其字段
		if field.Anonymous && !hasTag && field.Type.Kind() == reflect.Struct {
			if top {
				s.Capabilities = append(s.Capabilities, field.Type)
			}
			s.capabilities[field.Type] = struct{}{}
			if err := b.walk(s, field.Type, index, false); err != nil {
				return err
			}
			continue
		}

		if !field.IsExported() {
			continue
		}

		ft, err := parseTag(field.Name, tag)
		if err != nil {
			return err
		}

		if err := s.claimName(ft.name); err != nil {
			return err
		}

		if ft.foreignKey {
			fk, err := b.foreignKey(field, index, ft)
			if err != nil {
				return err
			}
			s.ForeignKeys = append(s.ForeignKeys, fk)
			s.foreignKeys[fk.Field] = fk
			if _, ok := s.foreignKeys[fk.Column]; !ok {
				s.foreignKeys[fk.Column] = fk
			}
			continue
		}

		col, err := newColumn(field, index, ft)
		if err != nil {
			return err
		}
		if col.Identity {
			if s.Identity != nil {
				return errors.WithMessagef(ErrAmbiguousIdentity, "columns %s and %s", s.Identity.Name, col.Name)
			}
			s.Identity = col
		}
		if col.SoftDelete {
			s.SoftDelete = col
		}
		s.Columns = append(s.Columns, col)
		s.columns[col.Field] = col
		if _, ok := s.columns[col.Name]; !ok {
			s.columns[col.Name] = col
		}
	}

	return nil
}

func (s *Schema) claimName(name string) error {
	if _, ok := s.columnNames[name]; ok {
		return errors.WithMessagef(ErrDuplicateColumn, "column %s in %v", name, s.Type)
	}
	s.columnNames[name] = struct{}{}
	return nil
}

func newColumn(field reflect.StructField, index []int, ft *fieldTag) (*Column, error) {
	fieldType := ft.fieldType
	if fieldType == "" {
		t, err := inferFieldType(field.Type)
		if err != nil {
			return nil, errors.WithMessagef(err, "field %s", field.Name)
		}
		fieldType = t
	}

	if ft.softDelete && fieldType != FieldTypeBool {
		return nil, errors.WithMessagef(ErrInvalidTag, "field %s: soft delete flag must be bool", field.Name)
	}

	return &Column{
		Field:         field.Name,
		Name:          ft.name,
		Type:          fieldType,
		Index:         index,
		GoType:        field.Type,
		Identity:      ft.identity,
		Assigned:      ft.assigned,
		DefaultOnNull: ft.defaultOnNull,
		AlwaysDefault: ft.alwaysDefault,
		SoftDelete:    ft.softDelete,
	}, nil
}

func (b *builder) foreignKey(field reflect.StructField, index []int, ft *fieldTag) (*ForeignKey, error) {
	fk := &ForeignKey{
		Field:  field.Name,
		Column: ft.name,
		Index:  index,
		GoType: field.Type,
		Kind:   ft.join,
	}

	if enum, ok := lookupEnum(field.Type); ok {
		fk.Enum = enum
		return fk, nil
	}

	t := field.Type
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || t == timeType || t == uuidType {
		return nil, errors.WithMessagef(ErrInvalidForeignKey, "field %s: %v is neither a record nor a registered enum", field.Name, field.Type)
	}

	target, err := b.build(t)
	if err != nil {
		return nil, errors.WithMessagef(ErrInvalidForeignKey, "field %s: %v", field.Name, err)
	}
	fk.Target = target

	return fk, nil
}

// inferFieldType 从 Go 类型推断字段类型
func inferFieldType(t reflect.Type) (FieldType, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t {
	case timeType:
		return FieldTypeDateTime, nil
	case uuidType:
		return FieldTypeUUID, nil
	}

	if t.Implements(valuerType) && reflect.PointerTo(t).Implements(scannerType) {
		return FieldTypeValuer, nil
	}

	switch t.Kind() {
	case reflect.String:
		return FieldTypeString, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return FieldTypeInt, nil
	case reflect.Float32, reflect.Float64:
		return FieldTypeFloat, nil
	case reflect.Bool:
		return FieldTypeBool, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return FieldTypeBytes, nil
		}
	}

	return "", errors.WithMessagef(ErrUnsupportedField, "%v", t)
}

type tableNamer interface {
	TableName() string
}

// tableName 表名：table 标签 > TableName() 方法 > 小写类型名
func tableName(t reflect.Type) string {
	for i := 0; i < t.NumField(); i++ {
		if name := t.Field(i).Tag.Get("table"); name != "" {
			return name
		}
	}

	if n, ok := reflect.New(t).Elem().Interface().(tableNamer); ok {
		return n.TableName()
	}
	if n, ok := reflect.New(t).Interface().(tableNamer); ok {
		return n.TableName()
	}

	return strings.ToLower(t.Name())
}
