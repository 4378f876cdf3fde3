package expr

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hatlonely/rdbx/dialect"
	"github.com/hatlonely/rdbx/schema"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

type mapResolver map[string]Ref

func (m mapResolver) ResolveField(f *Field) (Ref, error) {
	key := f.String()
	if f.Source == Secondary {
		key = "other." + key
	}
	ref, ok := m[key]
	if !ok {
		return Ref{}, errors.WithMessagef(ErrUnknownField, "%s", key)
	}
	return ref, nil
}

func (m mapResolver) ResolveIdentity(src Source) (Ref, error) {
	if src == Secondary {
		return m["other.id"], nil
	}
	return m["id"], nil
}

type testColor int

func (c testColor) Identity() int64 {
	return int64(c)
}

type testOwner struct {
	schema.Entity
	Name string `rdb:"name"`
}

func init() {
	schema.RegisterEnum(testColor(1), testColor(2))
}

var testResolver = mapResolver{
	"id":          {SQL: "`t`.`id`", Type: schema.FieldTypeInt},
	"field":       {SQL: "`t`.`field`", Type: schema.FieldTypeInt},
	"otherField":  {SQL: "`t`.`other_field`", Type: schema.FieldTypeString},
	"active":      {SQL: "`t`.`active`", Type: schema.FieldTypeBool},
	"birthday":    {SQL: "`t`.`birthday`", Type: schema.FieldTypeDate},
	"alarm":       {SQL: "`t`.`alarm`", Type: schema.FieldTypeTime},
	"createdAt":   {SQL: "`t`.`created_at`", Type: schema.FieldTypeDateTime},
	"Author.Name": {SQL: "`a1`.`name`", Type: schema.FieldTypeString},
	"other.id":    {SQL: "`a1`.`id`", Type: schema.FieldTypeInt},
	"ownerId":     {SQL: "`t`.`owner_id`", Type: schema.FieldTypeInt},
}

func TestCompilerPredicate(t *testing.T) {
	c := NewCompiler(dialect.MySQL, testResolver)

	Convey("测试比较与逻辑运算", t, func() {
		s, err := c.Predicate(And(F("field").Eq(5), F("otherField").Ne("x")))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "`t`.`field` = 5 AND `t`.`other_field` <> 'x'")

		s, err = c.Predicate(Or(F("field").Lt(1), F("field").Gt(9)))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "`t`.`field` < 1 OR `t`.`field` > 9")

		s, err = c.Predicate(And(F("active").Eq(true), Or(F("field").Le(1), F("field").Ge(9))))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "`t`.`active` = 1 AND (`t`.`field` <= 1 OR `t`.`field` >= 9)")

		s, err = c.Predicate(Or(And(F("field").Eq(1), F("active").Eq(false)), F("field").Eq(2)))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "`t`.`field` = 1 AND `t`.`active` = 0 OR `t`.`field` = 2")
	})

	Convey("测试 NOT", t, func() {
		s, err := c.Predicate(Not(F("field").Eq(1)))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "NOT `t`.`field` = 1")

		s, err = c.Predicate(Not(Or(F("field").Eq(1), F("field").Eq(2))))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "NOT (`t`.`field` = 1 OR `t`.`field` = 2)")
	})

	Convey("测试 NULL 比较", t, func() {
		s, err := c.Predicate(F("otherField").IsNull())
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "`t`.`other_field` IS NULL")

		var p *string
		s, err = c.Predicate(F("otherField").Ne(p))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "`t`.`other_field` IS NOT NULL")
	})

	Convey("测试按列类型渲染时间", t, func() {
		ts := time.Date(2024, 3, 9, 8, 7, 6, 0, time.UTC)

		s, err := c.Predicate(F("birthday").Eq(ts))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "`t`.`birthday` = '2024-03-09'")

		s, err = c.Predicate(F("alarm").Eq(ts))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "`t`.`alarm` = '08:07:06'")

		utc := NewCompiler(dialect.MySQL.WithLocation(time.UTC), testResolver)
		s, err = utc.Predicate(Cmp(Val(ts), OpLe, F("createdAt")))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "'2024-03-09 08:07:06' <= `t`.`created_at`")

		// datetime 换算到连接时区，date 保留日历值
		cst := time.FixedZone("CST", 8*3600)
		local := time.Date(2024, 3, 9, 2, 7, 6, 0, cst)
		s, err = utc.Predicate(F("createdAt").Eq(local))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "`t`.`created_at` = '2024-03-08 18:07:06'")

		s, err = NewCompiler(dialect.MySQL.WithLocation(cst), testResolver).Predicate(F("createdAt").Eq(ts))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "`t`.`created_at` = '2024-03-09 16:07:06'")

		s, err = utc.Predicate(F("birthday").Eq(local))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "`t`.`birthday` = '2024-03-09'")
	})

	Convey("测试路径、连接条件与自身", t, func() {
		s, err := c.Predicate(F("Author.Name").Eq("it's"))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "`a1`.`name` = 'it''s'")

		s, err = c.Predicate(F("ownerId").Eq(Other("id")))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "`t`.`owner_id` = `a1`.`id`")

		s, err = c.Predicate(Self().Eq(&testOwner{Entity: schema.Entity{ID: 42}}))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "`t`.`id` = 42")

		s, err = c.Predicate(F("field").Eq(testColor(2)))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "`t`.`field` = 2")
	})

	Convey("测试未知字段", t, func() {
		_, err := c.Predicate(And(F("field").Eq(1), F("missing").Eq(2)))
		So(errors.Is(err, ErrUnknownField), ShouldBeTrue)
		So(errors.Is(err, ErrCompile), ShouldBeTrue)

		_, err = c.Predicate(nil)
		So(errors.Is(err, ErrCompile), ShouldBeTrue)
	})
}

func TestCompilerOrder(t *testing.T) {
	c := NewCompiler(dialect.MySQL, testResolver)

	Convey("测试排序表达式", t, func() {
		s, err := c.Order(F("field"))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "`t`.`field`")

		s, err = c.Order(F("field"), F("id"))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "COALESCE(`t`.`field`, `t`.`id`)")

		s, err = c.Scalar(CoalesceOf(F("field")))
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "`t`.`field`")

		_, err = c.Order()
		So(errors.Is(err, ErrInvalidExpr), ShouldBeTrue)
	})
}

func TestLiteral(t *testing.T) {
	Convey("测试常量渲染", t, func() {
		cases := []struct {
			value  any
			expect string
		}{
			{nil, "NULL"},
			{"a'b", "'a''b'"},
			{true, "1"},
			{false, "0"},
			{42, "42"},
			{int64(-7), "-7"},
			{uint8(9), "9"},
			{1.5, "1.5"},
			{[]byte{0xde, 0xad}, "X'dead'"},
			{uuid.MustParse("3f2504e0-4f89-11d3-9a0c-0305e82c3301"), "'3f2504e0-4f89-11d3-9a0c-0305e82c3301'"},
			{testColor(1), "1"},
		}
		for _, c := range cases {
			s, err := Literal(dialect.MySQL, c.value, "")
			So(err, ShouldBeNil)
			So(s, ShouldEqual, c.expect)
		}

		n := 3
		s, err := Literal(dialect.MySQL, &n, "")
		So(err, ShouldBeNil)
		So(s, ShouldEqual, "3")

		s, err = Literal(dialect.SQLite, `a\b`, "")
		So(err, ShouldBeNil)
		So(s, ShouldEqual, `'a\b'`)

		_, err = Literal(dialect.MySQL, []int{1}, "")
		So(errors.Is(err, ErrUnsupportedValue), ShouldBeTrue)
	})
}
