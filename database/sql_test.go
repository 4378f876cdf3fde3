package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func newSQLite(t *testing.T) *SQL {
	db, err := NewSQLWithOptions(&Options{Driver: "sqlite3", Database: ":memory:"})
	if err != nil {
		t.Fatalf("NewSQLWithOptions() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(context.Background(), "CREATE TABLE `author` (`id` INTEGER PRIMARY KEY AUTOINCREMENT, `name` TEXT NOT NULL UNIQUE)")
	if err != nil {
		t.Fatalf("create table error = %v", err)
	}
	return db
}

func count(ctx context.Context, db *SQL) int {
	rows, err := db.Query(ctx, "SELECT COUNT(*) FROM `author`")
	So(err, ShouldBeNil)
	defer rows.Close()

	var n int
	So(rows.Next(), ShouldBeTrue)
	So(rows.Scan(&n), ShouldBeNil)
	return n
}

func TestNewSQLWithOptions(t *testing.T) {
	Convey("测试 NewSQLWithOptions", t, func() {
		Convey("nil options", func() {
			_, err := NewSQLWithOptions(nil)
			So(err, ShouldNotBeNil)
		})

		Convey("不支持的驱动", func() {
			_, err := NewSQLWithOptions(&Options{Driver: "oracle"})
			So(err, ShouldNotBeNil)
		})

		Convey("sqlite3 内存数据库", func() {
			db, err := NewSQLWithOptions(&Options{Driver: "sqlite3", Database: ":memory:"})
			So(err, ShouldBeNil)
			So(db.Driver(), ShouldEqual, "sqlite3")
			So(db.DB().Stats().MaxOpenConnections, ShouldEqual, 1)
			So(db.Close(), ShouldBeNil)
		})
	})
}

func TestSQLExec(t *testing.T) {
	Convey("测试 Exec 和 Query", t, func() {
		db := newSQLite(t)
		ctx := context.Background()

		res, err := db.Exec(ctx, "INSERT INTO `author` (`id`, `name`) VALUES (NULL, 'tom')")
		So(err, ShouldBeNil)
		So(res.RowsAffected, ShouldEqual, int64(1))
		So(res.LastInsertID, ShouldEqual, int64(1))

		res, err = db.Exec(ctx, "INSERT INTO `author` (`id`, `name`) VALUES (NULL, 'jerry')")
		So(err, ShouldBeNil)
		So(res.LastInsertID, ShouldEqual, int64(2))
		So(count(ctx, db), ShouldEqual, 2)

		Convey("唯一键冲突", func() {
			_, err := db.Exec(ctx, "INSERT INTO `author` (`id`, `name`) VALUES (NULL, 'tom')")
			So(err, ShouldNotBeNil)
			So(errors.Is(err, ErrDuplicateKey), ShouldBeTrue)
			So(errors.Is(err, ErrExecution), ShouldBeTrue)
			So(errors.Is(err, ErrConstraintViolation), ShouldBeFalse)

			var execErr *ExecError
			So(errors.As(err, &execErr), ShouldBeTrue)
			So(execErr.Op, ShouldEqual, "exec")
			So(execErr.Error(), ShouldContainSubstring, "sql: INSERT INTO")
		})

		Convey("非空约束", func() {
			_, err := db.Exec(ctx, "INSERT INTO `author` (`id`, `name`) VALUES (NULL, NULL)")
			So(errors.Is(err, ErrConstraintViolation), ShouldBeTrue)
			So(errors.Is(err, ErrDuplicateKey), ShouldBeFalse)
		})

		Convey("语法错误", func() {
			_, err := db.Query(ctx, "SELEC 1")
			So(errors.Is(err, ErrExecution), ShouldBeTrue)
			So(errors.Is(err, ErrConstraintViolation), ShouldBeFalse)
		})
	})
}

func TestSQLWithTx(t *testing.T) {
	Convey("测试 WithTx", t, func() {
		db := newSQLite(t)
		ctx := context.Background()

		Convey("提交", func() {
			err := db.WithTx(ctx, func(ctx context.Context) error {
				_, err := db.Exec(ctx, "INSERT INTO `author` (`id`, `name`) VALUES (NULL, 'tom')")
				So(err, ShouldBeNil)
				// 事务内可见
				So(count(ctx, db), ShouldEqual, 1)
				return nil
			})
			So(err, ShouldBeNil)
			So(count(ctx, db), ShouldEqual, 1)
		})

		Convey("返回错误时回滚", func() {
			err := db.WithTx(ctx, func(ctx context.Context) error {
				_, err := db.Exec(ctx, "INSERT INTO `author` (`id`, `name`) VALUES (NULL, 'tom')")
				So(err, ShouldBeNil)
				return errors.New("abort")
			})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldEqual, "abort")
			So(count(ctx, db), ShouldEqual, 0)
		})

		Convey("嵌套事务复用外层事务", func() {
			err := db.WithTx(ctx, func(ctx context.Context) error {
				outer, _ := db.TxFromContext(ctx)
				return db.WithTx(ctx, func(ctx context.Context) error {
					inner, ok := db.TxFromContext(ctx)
					So(ok, ShouldBeTrue)
					So(inner, ShouldEqual, outer)
					_, err := db.Exec(ctx, "INSERT INTO `author` (`id`, `name`) VALUES (NULL, 'tom')")
					return err
				})
			})
			So(err, ShouldBeNil)
			So(count(ctx, db), ShouldEqual, 1)
		})

		Convey("panic 时回滚并继续抛出", func() {
			So(func() {
				_ = db.WithTx(ctx, func(ctx context.Context) error {
					_, _ = db.Exec(ctx, "INSERT INTO `author` (`id`, `name`) VALUES (NULL, 'tom')")
					panic("boom")
				})
			}, ShouldPanicWith, "boom")
			So(count(ctx, db), ShouldEqual, 0)
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("测试 mysql 错误归类", t, func() {
		mock := func(number uint16) error {
			db, m, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
			So(err, ShouldBeNil)
			defer db.Close()
			m.ExpectExec("DELETE FROM `author`").WillReturnError(&mysql.MySQLError{Number: number, Message: "mock"})

			_, err = NewSQLWithDB(db, "mysql").Exec(context.Background(), "DELETE FROM `author`")
			So(m.ExpectationsWereMet(), ShouldBeNil)
			return err
		}

		So(errors.Is(mock(1062), ErrDuplicateKey), ShouldBeTrue)
		So(errors.Is(mock(1451), ErrConstraintViolation), ShouldBeTrue)
		So(errors.Is(mock(1452), ErrConstraintViolation), ShouldBeTrue)
		So(errors.Is(mock(1064), ErrExecution), ShouldBeTrue)
		So(errors.Is(mock(1064), ErrDuplicateKey), ShouldBeFalse)

		var me *mysql.MySQLError
		So(errors.As(mock(1062), &me), ShouldBeTrue)
		So(me.Number, ShouldEqual, uint16(1062))
	})
}
