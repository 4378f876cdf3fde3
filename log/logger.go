package log

import (
	"context"
	"io"
	"log/slog"
)

// Logger 日志接口
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)

	With(args ...any) Logger
	WithGroup(name string) Logger
}

// Discard 丢弃所有输出，测试中使用
func Discard() Logger {
	return &SLog{slogger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
