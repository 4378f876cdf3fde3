package expr

import "github.com/pkg/errors"

// ErrCompile 编译期错误，所有编译错误都可以用 errors.Is(err, ErrCompile) 识别
var ErrCompile = errors.New("compile error")

var (
	ErrUnknownField     = errors.WithMessage(ErrCompile, "unknown field")
	ErrJoinRequired     = errors.WithMessage(ErrCompile, "field path requires a join")
	ErrUnsupportedValue = errors.WithMessage(ErrCompile, "unsupported value")
	ErrInvalidExpr      = errors.WithMessage(ErrCompile, "invalid expression")
)
