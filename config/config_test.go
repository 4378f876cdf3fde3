package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type testOutput struct {
	Type string `cfg:"type" def:"stdout" validate:"oneof=stdout stderr file"`
	Path string `cfg:"path"`
}

type testOptions struct {
	Driver   string         `cfg:"driver" def:"mysql" validate:"oneof=mysql sqlite3"`
	Database string         `cfg:"database" validate:"required"`
	MaxConns int            `cfg:"maxConns" def:"10"`
	Timeout  time.Duration  `cfg:"timeout" def:"3s"`
	Enable   bool           `cfg:"enable" def:"true"`
	Ratio    float64        `cfg:"ratio"`
	Tags     []string       `cfg:"tags" def:"a, b"`
	Output   testOutput     `cfg:"output"`
	Backup   *testOutput    `cfg:"backup"`
	Fields   map[string]any `cfg:"fields"`
	Ignored  string         `cfg:"-"`
}

func writeFile(t *testing.T, name string, content string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	Convey("测试加载 yaml", t, func() {
		path := writeFile(t, "rdbx.yaml", `
driver: sqlite3
database: ":memory:"
maxconns: 1
timeout: 500ms
ratio: 1
output:
  type: file
  path: /tmp/rdbx.log
backup:
  type: stderr
fields:
  service: rdbx
Ignored: x
`)

		var options testOptions
		So(Load(path, &options), ShouldBeNil)
		So(options.Driver, ShouldEqual, "sqlite3")
		So(options.Database, ShouldEqual, ":memory:")
		So(options.MaxConns, ShouldEqual, 1)
		So(options.Timeout, ShouldEqual, 500*time.Millisecond)
		So(options.Ratio, ShouldEqual, 1.0)
		So(options.Enable, ShouldBeTrue)
		So(options.Tags, ShouldResemble, []string{"a", "b"})
		So(options.Output, ShouldResemble, testOutput{Type: "file", Path: "/tmp/rdbx.log"})
		So(options.Backup, ShouldResemble, &testOutput{Type: "stderr"})
		So(options.Fields, ShouldResemble, map[string]any{"service": "rdbx"})
		So(options.Ignored, ShouldEqual, "")
	})

	Convey("测试加载 toml", t, func() {
		path := writeFile(t, "rdbx.toml", `
database = "rdbx"
timeout = 1.5

[output]
path = "/tmp/rdbx.log"
`)

		var options testOptions
		So(Load(path, &options), ShouldBeNil)
		So(options.Driver, ShouldEqual, "mysql")
		So(options.MaxConns, ShouldEqual, 10)
		So(options.Timeout, ShouldEqual, 1500*time.Millisecond)
		So(options.Output.Type, ShouldEqual, "stdout")
		So(options.Output.Path, ShouldEqual, "/tmp/rdbx.log")
		So(options.Backup, ShouldBeNil)
	})

	Convey("测试加载 json", t, func() {
		path := writeFile(t, "rdbx.json", `{"database": "rdbx", "maxConns": 20}`)

		var options testOptions
		So(Load(path, &options), ShouldBeNil)
		So(options.MaxConns, ShouldEqual, 20)
		So(options.Timeout, ShouldEqual, 3*time.Second)
	})

	Convey("测试错误", t, func() {
		var options testOptions

		Convey("文件不存在", func() {
			So(Load(filepath.Join(t.TempDir(), "missing.yaml"), &options), ShouldNotBeNil)
		})

		Convey("不支持的格式", func() {
			So(LoadBytes([]byte("x=1"), "ini", &options), ShouldNotBeNil)
		})

		Convey("校验失败", func() {
			err := LoadBytes([]byte("driver: oracle\ndatabase: x\n"), "yaml", &options)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "Driver")
		})

		Convey("缺少必填字段", func() {
			So(LoadBytes([]byte("driver: mysql\n"), "yaml", &options), ShouldNotBeNil)
		})

		Convey("类型不匹配", func() {
			So(LoadBytes([]byte("database: x\nmaxConns: many\n"), "yaml", &options), ShouldNotBeNil)
		})

		Convey("非法时长", func() {
			So(LoadBytes([]byte("database: x\ntimeout: soon\n"), "yaml", &options), ShouldNotBeNil)
		})
	})
}

func TestSetDefaults(t *testing.T) {
	Convey("测试默认值不覆盖已有值", t, func() {
		options := testOptions{Driver: "sqlite3", MaxConns: 2}
		So(SetDefaults(&options), ShouldBeNil)
		So(options.Driver, ShouldEqual, "sqlite3")
		So(options.MaxConns, ShouldEqual, 2)
		So(options.Output.Type, ShouldEqual, "stdout")

		So(SetDefaults(options), ShouldNotBeNil)
		So(SetDefaults(nil), ShouldNotBeNil)
	})

	Convey("测试非法默认值", t, func() {
		type bad struct {
			N int `def:"ten"`
		}
		So(SetDefaults(&bad{}), ShouldNotBeNil)
	})
}
