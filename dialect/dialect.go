package dialect

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Dialect 方言关键字替换表
type Dialect struct {
	// 驱动名称，与 database/sql 注册名一致
	Name string
	// 插入时自增主键的占位值
	IdentityPlaceholder string
	// 插入/更新时表示列默认值的关键字，为空表示不支持，回退为 NULL
	DefaultKeyword string
	// 清空表语句前缀
	TruncatePrefix string
	// 字符串字面量中反斜杠是否为转义符
	BackslashEscapes bool
	// 连接读写 datetime 使用的时区，nil 为 time.Local
	Location *time.Location
}

var (
	MySQL = &Dialect{
		Name:                "mysql",
		IdentityPlaceholder: "DEFAULT",
		DefaultKeyword:      "DEFAULT",
		TruncatePrefix:      "TRUNCATE TABLE",
		BackslashEscapes:    true,
	}

	SQLite = &Dialect{
		Name:                "sqlite3",
		IdentityPlaceholder: "NULL",
		TruncatePrefix:      "DELETE FROM",
		// mattn/go-sqlite3 按 UTC 解析 datetime 文本
		Location: time.UTC,
	}
)

// ByName 根据驱动名称返回方言
func ByName(name string) (*Dialect, error) {
	switch strings.ToLower(name) {
	case "mysql", "":
		return MySQL, nil
	case "sqlite3", "sqlite":
		return SQLite, nil
	default:
		return nil, errors.Errorf("unsupported dialect: %s", name)
	}
}

// WithLocation 返回使用指定时区的副本
func (d *Dialect) WithLocation(loc *time.Location) *Dialect {
	nd := *d
	nd.Location = loc
	return &nd
}

// Loc datetime 字面量与结果解析使用的时区
func (d *Dialect) Loc() *time.Location {
	if d.Location == nil {
		return time.Local
	}
	return d.Location
}

// OmitDefault 没有 DEFAULT 关键字时，取默认值的列只能从语句中省略
func (d *Dialect) OmitDefault() bool {
	return d.DefaultKeyword == ""
}

// Quote 使用反引号包裹标识符
func (d *Dialect) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// QuoteString 字符串字面量，单引号加倍
func (d *Dialect) QuoteString(s string) string {
	if d.BackslashEscapes {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Default 列默认值关键字
func (d *Dialect) Default() string {
	if d.DefaultKeyword == "" {
		return "NULL"
	}
	return d.DefaultKeyword
}

// Truncate 清空表语句
func (d *Dialect) Truncate(table string) string {
	return d.TruncatePrefix + " " + d.Quote(table)
}
