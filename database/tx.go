package database

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// txKey 以 *sql.DB 区分，不同连接池的事务互不复用
type txKey struct {
	db *sql.DB
}

// TxFromContext 上下文中绑定到本连接的事务
func (s *SQL) TxFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{db: s.db}).(*sql.Tx)
	return tx, ok
}

// WithTx 开启事务并绑定到上下文，fn 返回错误或 panic 时回滚，否则提交
// 上下文已有事务时复用，由最外层负责提交或回滚
func (s *SQL) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := s.TxFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return newExecError("begin", "", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{db: s.db}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.WithMessagef(err, "rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return newExecError("commit", "", err)
	}

	return nil
}
