package rdbx

import (
	"github.com/hatlonely/rdbx/config"
	"github.com/hatlonely/rdbx/database"
	"github.com/hatlonely/rdbx/log"
	"github.com/hatlonely/rdbx/page"
	"github.com/hatlonely/rdbx/sqlbuilder"
	"github.com/hatlonely/rdbx/uid"
	"github.com/pkg/errors"
)

type Options struct {
	Database   database.Options           `cfg:"database"`
	Builder    sqlbuilder.Options         `cfg:"builder"`
	Observable database.ObservableOptions `cfg:"observable"`
	Logger     log.Options                `cfg:"logger"`
	Cache      page.StoreOptions          `cfg:"cache"`

	// 调用方赋值主键的生成器
	IDGenerator uid.Options `cfg:"idGenerator"`

	// 不包装 ObservableConn
	DisableObservable bool `cfg:"disableObservable"`
}

// LoadOptions 从配置文件加载，支持 yaml, toml, json
func LoadOptions(path string) (*Options, error) {
	var options Options
	if err := config.Load(path, &options); err != nil {
		return nil, errors.WithMessage(err, "config.Load failed")
	}
	return &options, nil
}
