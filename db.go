package rdbx

import (
	"context"
	"io"

	"github.com/hatlonely/rdbx/database"
	"github.com/hatlonely/rdbx/dialect"
	"github.com/hatlonely/rdbx/log"
	"github.com/hatlonely/rdbx/page"
	"github.com/hatlonely/rdbx/sqlbuilder"
	"github.com/hatlonely/rdbx/uid"
	"github.com/pkg/errors"
)

// DB 连接、语句构造与日志的组合，Repository 共享同一个 DB
type DB struct {
	conn    database.Conn
	builder *sqlbuilder.Builder
	logger  log.Logger
	cache   page.StoreOptions
	ids     uid.Generator
	closer  io.Closer
}

func NewWithOptions(options *Options) (*DB, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	logger, err := log.NewSLogWithOptions(&options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "log.NewSLogWithOptions failed")
	}

	ids, err := uid.NewGeneratorWithOptions(&options.IDGenerator)
	if err != nil {
		_ = logger.Close()
		return nil, errors.WithMessage(err, "uid.NewGeneratorWithOptions failed")
	}

	builderOptions := options.Builder
	if builderOptions.Dialect == "" {
		builderOptions.Dialect = options.Database.Driver
	}
	// mysql 驱动按连接时区解析 datetime，字面量换算到同一时区
	if builderOptions.Location == "" && builderOptions.Dialect == "mysql" && options.Database.DSN == "" {
		builderOptions.Location = options.Database.Loc
	}
	builder, err := sqlbuilder.NewBuilderWithOptions(&builderOptions)
	if err != nil {
		_ = logger.Close()
		return nil, errors.WithMessage(err, "sqlbuilder.NewBuilderWithOptions failed")
	}

	sqlConn, err := database.NewSQLWithOptions(&options.Database)
	if err != nil {
		_ = logger.Close()
		return nil, errors.WithMessage(err, "database.NewSQLWithOptions failed")
	}

	var conn database.Conn = sqlConn
	if !options.DisableObservable {
		conn, err = database.NewObservableConnWithOptions(sqlConn, &options.Observable, database.WithLogger(logger))
		if err != nil {
			_ = sqlConn.Close()
			_ = logger.Close()
			return nil, errors.WithMessage(err, "database.NewObservableConnWithOptions failed")
		}
	}

	return &DB{
		conn:    conn,
		builder: builder,
		logger:  logger,
		cache:   options.Cache,
		ids:     ids,
		closer:  logger,
	}, nil
}

// NewWithConn 使用已有连接，方言取自连接的驱动
func NewWithConn(conn database.Conn) (*DB, error) {
	d, err := dialect.ByName(conn.Driver())
	if err != nil {
		return nil, err
	}
	return &DB{
		conn:    conn,
		builder: sqlbuilder.NewBuilder(d),
		logger:  log.Default(),
		cache:   page.StoreOptions{Type: "map"},
		ids:     uid.NewSnowflakeGenerator(nil),
	}, nil
}

// WithBuilder 替换语句构造器，例如使用独立的默认条件注册表
func (db *DB) WithBuilder(builder *sqlbuilder.Builder) *DB {
	ndb := *db
	ndb.builder = builder
	return &ndb
}

// WithIDGenerator 替换主键生成器
func (db *DB) WithIDGenerator(ids uid.Generator) *DB {
	ndb := *db
	ndb.ids = ids
	return &ndb
}

func (db *DB) Conn() database.Conn {
	return db.conn
}

func (db *DB) Builder() *sqlbuilder.Builder {
	return db.builder
}

func (db *DB) Logger() log.Logger {
	return db.logger
}

// WithTx 在事务中执行 fn，fn 内通过 ctx 发起的操作共享同一事务
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.conn.WithTx(ctx, fn)
}

func (db *DB) Close() error {
	err := db.conn.Close()
	if db.closer != nil {
		_ = db.closer.Close()
	}
	return err
}

// NewPageStore 按配置创建页缓存
func NewPageStore[T any](db *DB) (page.Store[[]*T], error) {
	return page.NewStoreWithOptions[[]*T](&db.cache)
}
