package rdbx

import "github.com/pkg/errors"

// ErrRecordNotFound Get 按主键未查到记录
var ErrRecordNotFound = errors.New("record not found")
