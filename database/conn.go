package database

import (
	"context"
	"database/sql"
)

// Result 写语句的结果
type Result struct {
	RowsAffected int64
	LastInsertID int64
}

// Conn 连接协作者：执行查询返回游标，执行语句返回影响行数或生成的主键
// 上下文中绑定的事务会被自动使用
type Conn interface {
	Query(ctx context.Context, query string) (*sql.Rows, error)
	Exec(ctx context.Context, query string) (Result, error)
	// WithTx 在事务中执行 fn，上下文已绑定事务时直接复用
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Driver() string
	Close() error
}
