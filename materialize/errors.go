package materialize

import "github.com/pkg/errors"

var (
	ErrMissingColumn = errors.New("missing column in result set")
	ErrConversion    = errors.New("cannot convert column value")
)
