package schema

import "github.com/pkg/errors"

var (
	ErrNotStruct         = errors.New("record type must be a struct")
	ErrInvalidForeignKey = errors.New("invalid foreign key")
	ErrMissingIdentity   = errors.New("missing identity column")
	ErrAmbiguousIdentity = errors.New("ambiguous identity column")
	ErrDuplicateColumn   = errors.New("duplicate column")
	ErrUnsupportedField  = errors.New("unsupported field type")
	ErrInvalidTag        = errors.New("invalid rdb tag")
)
