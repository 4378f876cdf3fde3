package log

import (
	"sync/atomic"
)

var defaultLogger atomic.Value

func init() {
	slog, err := NewSLogWithOptions(&Options{Level: "info", Format: "text"})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	defaultLogger.Store(holder{slog})
}

type holder struct {
	Logger
}

// Default 默认日志器，向标准输出写 text 格式
func Default() Logger {
	return defaultLogger.Load().(holder).Logger
}

func SetDefault(logger Logger) {
	if logger == nil {
		return
	}
	defaultLogger.Store(holder{logger})
}
