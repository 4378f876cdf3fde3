package sqlbuilder

import (
	"github.com/hatlonely/rdbx/expr"
	"github.com/pkg/errors"
)

var ErrInvalidQuery = errors.WithMessage(expr.ErrCompile, "invalid query")
