package uid

import (
	"github.com/pkg/errors"
)

// Generator 生成调用方赋值的主键，返回 int64 或 uuid.UUID
type Generator interface {
	Generate() any
}

type Options struct {
	// snowflake, uuid
	Type string `cfg:"type" def:"snowflake" validate:"omitempty,oneof=snowflake uuid"`
	// snowflake 机器号，为空时取本机 IPv4 地址低 10 位
	MachineID *int64 `cfg:"machineID"`
	// uuid 版本：v4, v7
	Version string `cfg:"version" def:"v7" validate:"omitempty,oneof=v4 v7"`
}

func NewGeneratorWithOptions(options *Options) (Generator, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	switch options.Type {
	case "", "snowflake":
		return NewSnowflakeGenerator(options.MachineID), nil
	case "uuid":
		return NewUUIDGenerator(options.Version)
	}

	return nil, errors.Errorf("unsupported generator type: %s", options.Type)
}
