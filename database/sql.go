package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type Options struct {
	Driver          string        `cfg:"driver" def:"mysql" validate:"oneof=mysql sqlite3"`
	DSN             string        `cfg:"dsn"`
	Host            string        `cfg:"host" def:"localhost"`
	Port            string        `cfg:"port" def:"3306"`
	Database        string        `cfg:"database"`
	Username        string        `cfg:"username"`
	Password        string        `cfg:"password"`
	Charset         string        `cfg:"charset" def:"utf8mb4"`
	// mysql 连接时区，同时决定 datetime 字面量换算到的时区
	Loc             string        `cfg:"loc" def:"Local"`
	MaxConns        int           `cfg:"maxConns" def:"10"`
	MaxIdle         int           `cfg:"maxIdle" def:"5"`
	ConnMaxLifetime time.Duration `cfg:"connMaxLifetime" def:"1h"`
}

// SQL 基于 database/sql 的连接实现
type SQL struct {
	db     *sql.DB
	driver string
}

func NewSQLWithOptions(options *Options) (*SQL, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	dsn := options.DSN
	if dsn == "" {
		switch options.Driver {
		case "mysql":
			loc := options.Loc
			if loc == "" {
				loc = "Local"
			}
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=%s",
				options.Username, options.Password, options.Host, options.Port, options.Database, options.Charset, url.QueryEscape(loc))
		case "sqlite3":
			dsn = options.Database
		default:
			return nil, errors.Errorf("unsupported driver: %s", options.Driver)
		}
	}

	db, err := sql.Open(options.Driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sql.Open failed")
	}

	if options.MaxConns > 0 {
		db.SetMaxOpenConns(options.MaxConns)
	}
	if options.MaxIdle > 0 {
		db.SetMaxIdleConns(options.MaxIdle)
	}
	if options.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(options.ConnMaxLifetime)
	}
	// 内存数据库每个连接相互独立，只能使用一个连接
	if options.Driver == "sqlite3" && (dsn == ":memory:" || dsn == "") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "db.Ping failed")
	}

	return &SQL{db: db, driver: options.Driver}, nil
}

// NewSQLWithDB 包装已有的 *sql.DB
func NewSQLWithDB(db *sql.DB, driver string) *SQL {
	return &SQL{db: db, driver: driver}
}

func (s *SQL) DB() *sql.DB {
	return s.db
}

func (s *SQL) Driver() string {
	return s.driver
}

func (s *SQL) Close() error {
	return s.db.Close()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// querier 上下文绑定了本连接的事务时使用事务
func (s *SQL) querier(ctx context.Context) querier {
	if tx, ok := s.TxFromContext(ctx); ok {
		return tx
	}
	return s.db
}

func (s *SQL) Query(ctx context.Context, query string) (*sql.Rows, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, newExecError("query", query, err)
	}
	return rows, nil
}

func (s *SQL) Exec(ctx context.Context, query string) (Result, error) {
	res, err := s.querier(ctx).ExecContext(ctx, query)
	if err != nil {
		return Result{}, newExecError("exec", query, err)
	}

	var result Result
	if result.RowsAffected, err = res.RowsAffected(); err != nil {
		return Result{}, newExecError("exec", query, err)
	}
	// 部分驱动不支持 LastInsertId，忽略错误
	result.LastInsertID, _ = res.LastInsertId()

	return result, nil
}
