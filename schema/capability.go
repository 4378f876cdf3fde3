package schema

import "reflect"

// Entity 具有数据库生成的整数主键
type Entity struct {
	ID int64 `rdb:"id,pk"`
}

func (e Entity) Identity() int64 {
	return e.ID
}

// SoftDelete 删除时只标记 deleted 列
type SoftDelete struct {
	Deleted bool `rdb:"deleted,softdelete"`
}

// CodeDescription 编码与描述
type CodeDescription struct {
	Code        string `rdb:"code"`
	Description string `rdb:"description"`
}

var (
	EntityType          = reflect.TypeOf(Entity{})
	SoftDeleteType      = reflect.TypeOf(SoftDelete{})
	CodeDescriptionType = reflect.TypeOf(CodeDescription{})
)

// Parents 返回类型直接嵌入的能力类型，即父类型链的下一层
// 没有嵌入任何能力的类型是链的终点
func Parents(t reflect.Type) []reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var parents []reflect.Type
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if _, hasTag := field.Tag.Lookup("rdb"); hasTag {
			continue
		}
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			parents = append(parents, field.Type)
		}
	}
	return parents
}
