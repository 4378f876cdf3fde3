package schema

import (
	"reflect"
)

// FieldType 字段类型
type FieldType string

const (
	FieldTypeString   FieldType = "string"
	FieldTypeInt      FieldType = "int"
	FieldTypeFloat    FieldType = "float"
	FieldTypeBool     FieldType = "bool"
	FieldTypeDate     FieldType = "date"
	FieldTypeTime     FieldType = "time"
	FieldTypeDateTime FieldType = "datetime"
	FieldTypeBytes    FieldType = "bytes"
	FieldTypeUUID     FieldType = "uuid"
	// 实现了 driver.Valuer / sql.Scanner 的自定义类型
	FieldTypeValuer FieldType = "valuer"
)

// IsTemporal 是否为时间类型
func (t FieldType) IsTemporal() bool {
	return t == FieldTypeDate || t == FieldTypeTime || t == FieldTypeDateTime
}

// JoinKind 外键连接方式
type JoinKind string

const (
	JoinLeft  JoinKind = "LEFT"
	JoinInner JoinKind = "INNER"
)

// Column 直接持久化的列
type Column struct {
	Field  string       // 结构体字段名
	Name   string       // 列名
	Type   FieldType    // 标量类型
	Index  []int        // reflect 字段索引路径，包含嵌入层级
	GoType reflect.Type // 字段声明类型

	Identity bool
	// 主键由调用方赋值，插入时不使用占位符
	Assigned      bool
	DefaultOnNull bool
	AlwaysDefault bool
	SoftDelete    bool
}

// Nullable 字段是否可以为 NULL
func (c *Column) Nullable() bool {
	k := c.GoType.Kind()
	return k == reflect.Ptr || k == reflect.Interface || (k == reflect.Slice && c.Type == FieldTypeBytes)
}

// ForeignKey 外键字段，目标为另一个记录或封闭枚举
type ForeignKey struct {
	Field  string
	Column string // 本表外键列
	Index  []int
	GoType reflect.Type
	Kind   JoinKind

	// 二者恰有一个非空
	Target *Schema
	Enum   *Enum
}

// IsEnum 目标是否为枚举
func (fk *ForeignKey) IsEnum() bool {
	return fk.Enum != nil
}

// Schema 记录类型的列与外键描述，构造后不可变
type Schema struct {
	Type        reflect.Type
	Table       string
	Identity    *Column
	Columns     []*Column
	ForeignKeys []*ForeignKey
	SoftDelete  *Column

	// 直接嵌入的能力类型，按声明顺序
	Capabilities []reflect.Type

	capabilities map[reflect.Type]struct{}
	columns      map[string]*Column
	foreignKeys  map[string]*ForeignKey
	columnNames  map[string]struct{}
}

func newSchema(t reflect.Type) *Schema {
	return &Schema{
		Type:         t,
		capabilities: map[reflect.Type]struct{}{},
		columns:      map[string]*Column{},
		foreignKeys:  map[string]*ForeignKey{},
		columnNames:  map[string]struct{}{},
	}
}

// Lookup 按字段名或列名查找，字段名优先
func (s *Schema) Lookup(name string) (*Column, *ForeignKey, bool) {
	if c, ok := s.columns[name]; ok {
		return c, nil, true
	}
	if fk, ok := s.foreignKeys[name]; ok {
		return nil, fk, true
	}
	return nil, nil, false
}

// Column 按字段名或列名查找普通列
func (s *Schema) Column(name string) (*Column, bool) {
	c, ok := s.columns[name]
	return c, ok
}

// ForeignKey 按字段名或外键列名查找外键
func (s *Schema) ForeignKey(name string) (*ForeignKey, bool) {
	fk, ok := s.foreignKeys[name]
	return fk, ok
}

// Writable 插入/更新时写入的普通列，不含主键
func (s *Schema) Writable() []*Column {
	cols := make([]*Column, 0, len(s.Columns))
	for _, c := range s.Columns {
		if c.Identity {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

// HasCapability 是否嵌入（直接或间接）了给定能力类型
func (s *Schema) HasCapability(t reflect.Type) bool {
	_, ok := s.capabilities[t]
	return ok
}

// New 创建一个新的记录指针
func (s *Schema) New() reflect.Value {
	return reflect.New(s.Type)
}
