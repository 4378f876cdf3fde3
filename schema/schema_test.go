package schema

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

type testCountry struct {
	Entity
	Name string `rdb:"name"`
}

func (testCountry) TableName() string {
	return "country"
}

type testStatus int

func (s testStatus) Identity() int64 {
	return int64(s)
}

const (
	testStatusActive  testStatus = 1
	testStatusBlocked testStatus = 2
)

type testAuthor struct {
	_ struct{} `table:"authors"`
	Entity
	SoftDelete
	Name     string       `rdb:"name"`
	Birthday time.Time    `rdb:"birthday,type=date"`
	Token    uuid.UUID    `rdb:"token"`
	Nick     *string      `rdb:"nick"`
	Country  *testCountry `rdb:"country_id,fk,inner"`
	Status   testStatus   `rdb:"status_id,fk"`
	Ignored  string       `rdb:"-"`
	Remark   string
}

type testNode struct {
	Entity
	Name   string    `rdb:"name"`
	Parent *testNode `rdb:"parent_id,fk"`
}

type testPing struct {
	Entity
	Pong *testPong `rdb:"pong_id,fk"`
}

type testPong struct {
	Entity
	Ping *testPing `rdb:"ping_id,fk"`
}

type testBadForeignKey struct {
	Entity
	Other *string `rdb:"other_id,fk"`
}

type testNoIdentity struct {
	Name string `rdb:"name"`
}

type testTwoIdentity struct {
	A int64 `rdb:"a,pk"`
	B int64 `rdb:"b,pk"`
}

type testDuplicate struct {
	Entity
	A string `rdb:"x"`
	B string `rdb:"x"`
}

type testNestedStruct struct {
	Entity
	Inner struct{ A int } `rdb:"inner"`
}

type testTargetWithoutIdentity struct {
	Entity
	Target *testNoIdentity `rdb:"target_id,fk"`
}

func init() {
	RegisterEnum(testStatusActive, testStatusBlocked)
}

func TestSchemaOf(t *testing.T) {
	Convey("测试 schema 构建", t, func() {
		s, err := Of[testAuthor]()
		So(err, ShouldBeNil)

		Convey("表名与列", func() {
			So(s.Table, ShouldEqual, "authors")
			So(s.Identity.Name, ShouldEqual, "id")
			So(s.Identity.Index, ShouldResemble, []int{1, 0})

			var names []string
			for _, c := range s.Columns {
				names = append(names, c.Name)
			}
			So(names, ShouldResemble, []string{"id", "deleted", "name", "birthday", "token", "nick", "Remark"})
			So(s.SoftDelete.Name, ShouldEqual, "deleted")
		})

		Convey("字段类型推断", func() {
			c, ok := s.Column("birthday")
			So(ok, ShouldBeTrue)
			So(c.Type, ShouldEqual, FieldTypeDate)

			c, _ = s.Column("Token")
			So(c.Type, ShouldEqual, FieldTypeUUID)

			c, _ = s.Column("nick")
			So(c.Type, ShouldEqual, FieldTypeString)
			So(c.Nullable(), ShouldBeTrue)

			_, ok = s.Column("Ignored")
			So(ok, ShouldBeFalse)
		})

		Convey("外键", func() {
			So(len(s.ForeignKeys), ShouldEqual, 2)

			country := s.ForeignKeys[0]
			So(country.Field, ShouldEqual, "Country")
			So(country.Column, ShouldEqual, "country_id")
			So(country.Kind, ShouldEqual, JoinInner)
			So(country.Target.Table, ShouldEqual, "country")
			So(country.IsEnum(), ShouldBeFalse)

			status := s.ForeignKeys[1]
			So(status.Kind, ShouldEqual, JoinLeft)
			So(status.IsEnum(), ShouldBeTrue)
			So(len(status.Enum.Members), ShouldEqual, 2)

			_, fk, ok := s.Lookup("status_id")
			So(ok, ShouldBeTrue)
			So(fk, ShouldEqual, status)
		})

		Convey("能力", func() {
			So(s.Capabilities, ShouldResemble, []reflect.Type{EntityType, SoftDeleteType})
			So(s.HasCapability(SoftDeleteType), ShouldBeTrue)
			So(s.HasCapability(CodeDescriptionType), ShouldBeFalse)
			So(Parents(reflect.TypeOf(testAuthor{})), ShouldResemble, []reflect.Type{EntityType, SoftDeleteType})
			So(Parents(EntityType), ShouldBeEmpty)
		})

		Convey("缓存", func() {
			s2, err := OfType(reflect.TypeOf(&testAuthor{}))
			So(err, ShouldBeNil)
			So(s2, ShouldEqual, s)
		})
	})

	Convey("测试循环外键", t, func() {
		s, err := Of[testNode]()
		So(err, ShouldBeNil)
		So(s.Table, ShouldEqual, "testnode")
		So(s.ForeignKeys[0].Target, ShouldEqual, s)

		ping, err := Of[testPing]()
		So(err, ShouldBeNil)
		pong := ping.ForeignKeys[0].Target
		So(pong.Table, ShouldEqual, "testpong")
		So(pong.ForeignKeys[0].Target, ShouldEqual, ping)
	})

	Convey("测试 schema 错误", t, func() {
		_, err := Of[testBadForeignKey]()
		So(errors.Is(err, ErrInvalidForeignKey), ShouldBeTrue)

		_, err = Of[testNoIdentity]()
		So(errors.Is(err, ErrMissingIdentity), ShouldBeTrue)

		_, err = Of[testTwoIdentity]()
		So(errors.Is(err, ErrAmbiguousIdentity), ShouldBeTrue)

		_, err = Of[testDuplicate]()
		So(errors.Is(err, ErrDuplicateColumn), ShouldBeTrue)

		_, err = Of[testNestedStruct]()
		So(errors.Is(err, ErrUnsupportedField), ShouldBeTrue)

		_, err = Of[testTargetWithoutIdentity]()
		So(errors.Is(err, ErrInvalidForeignKey), ShouldBeTrue)

		_, err = Of[int]()
		So(errors.Is(err, ErrNotStruct), ShouldBeTrue)
	})

	Convey("测试标签解析", t, func() {
		ft, err := parseTag("Name", "")
		So(err, ShouldBeNil)
		So(ft.name, ShouldEqual, "Name")

		ft, err = parseTag("ID", "uid,pk,assigned,type=uuid")
		So(err, ShouldBeNil)
		So(ft.name, ShouldEqual, "uid")
		So(ft.identity, ShouldBeTrue)
		So(ft.assigned, ShouldBeTrue)
		So(ft.fieldType, ShouldEqual, FieldTypeUUID)

		_, err = parseTag("X", "x,unknown")
		So(errors.Is(err, ErrInvalidTag), ShouldBeTrue)

		_, err = parseTag("X", "x,type=json")
		So(errors.Is(err, ErrInvalidTag), ShouldBeTrue)

		_, err = parseTag("X", "x,fk,pk")
		So(errors.Is(err, ErrInvalidTag), ShouldBeTrue)
	})
}

func TestIdentity(t *testing.T) {
	Convey("测试标识取值", t, func() {
		s := MustRegister[testAuthor]()
		a := &testAuthor{Entity: Entity{ID: 7}, Status: testStatusBlocked, Country: &testCountry{Entity: Entity{ID: 3}}}

		id, ok := s.IdentityValue(a)
		So(ok, ShouldBeTrue)
		So(id, ShouldEqual, int64(7))

		id, ok = IdentityOf(testStatusActive)
		So(ok, ShouldBeTrue)
		So(id, ShouldEqual, int64(1))

		id, ok = IdentityOf(a.Country)
		So(ok, ShouldBeTrue)
		So(id, ShouldEqual, int64(3))

		_, ok = IdentityOf((*testCountry)(nil))
		So(ok, ShouldBeFalse)

		rv := reflect.ValueOf(a).Elem()
		So(s.ForeignKeys[0].Value(rv), ShouldEqual, int64(3))
		So(s.ForeignKeys[1].Value(rv), ShouldEqual, int64(2))

		a.Country = nil
		So(s.ForeignKeys[0].Value(rv), ShouldBeNil)

		m, ok := s.ForeignKeys[1].Enum.Member(2)
		So(ok, ShouldBeTrue)
		So(m.Interface(), ShouldEqual, testStatusBlocked)
		_, ok = s.ForeignKeys[1].Enum.Member(9)
		So(ok, ShouldBeFalse)
	})
}
