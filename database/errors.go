package database

import (
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// ErrExecution 执行期错误，与编译期错误区分
var ErrExecution = errors.New("execution error")

var (
	ErrDuplicateKey        = errors.WithMessage(ErrExecution, "duplicate key")
	ErrConstraintViolation = errors.WithMessage(ErrExecution, "constraint violation")
)

// ExecError 语句执行失败，Kind 为分类后的错误
type ExecError struct {
	Op   string
	SQL  string
	Kind error
	Err  error
}

func newExecError(op string, query string, err error) *ExecError {
	return &ExecError{Op: op, SQL: query, Kind: classify(err), Err: err}
}

func (e *ExecError) Error() string {
	if e.SQL == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed: %v, sql: %s", e.Op, e.Err, e.SQL)
}

func (e *ExecError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// classify 按驱动错误码归类
func classify(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1062, 1586:
			return ErrDuplicateKey
		case 1048, 1216, 1217, 1451, 1452, 3819:
			return ErrConstraintViolation
		}
		return ErrExecution
	}

	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return ErrDuplicateKey
		}
		return ErrConstraintViolation
	}

	return ErrExecution
}
