package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Load 读取配置文件到 object，按扩展名选择格式：yaml, yml, toml, json
// 解析后依次填充 def 默认值并做 validate 校验
func Load(path string, object any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config file %s failed", path)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return LoadBytes(data, format, object)
}

func LoadBytes(data []byte, format string, object any) error {
	raw, err := decode(data, format)
	if err != nil {
		return err
	}
	if err := Convert(raw, object); err != nil {
		return errors.WithMessage(err, "convert config failed")
	}
	if err := SetDefaults(object); err != nil {
		return errors.WithMessage(err, "set defaults failed")
	}
	return Validate(object)
}

func decode(data []byte, format string) (map[string]any, error) {
	var raw map[string]any

	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, "yaml.Unmarshal failed")
		}
	case "toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, "toml.Unmarshal failed")
		}
	case "json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, "json.Unmarshal failed")
		}
	default:
		return nil, errors.Errorf("unsupported config format: %q", format)
	}

	return raw, nil
}

var validate = validator.New()

// Validate 使用 validate tag 校验结构体，非结构体直接通过
func Validate(object any) error {
	if object == nil {
		return nil
	}
	if err := validate.Struct(object); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil
		}
		return errors.Wrap(err, "validate failed")
	}
	return nil
}
