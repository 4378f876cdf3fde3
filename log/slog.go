package log

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Options struct {
	// debug, info, warn, error
	Level string `cfg:"level" def:"info" validate:"omitempty,oneof=debug info warn error"`
	// text, json
	Format     string         `cfg:"format" def:"text" validate:"omitempty,oneof=text json"`
	Output     OutputOptions  `cfg:"output"`
	TimeFormat string         `cfg:"timeFormat"`
	AddSource  bool           `cfg:"addSource"`
	Fields     map[string]any `cfg:"fields"`
}

type SLog struct {
	slogger *slog.Logger
	closer  io.Closer
}

func NewSLogWithOptions(options *Options) (*SLog, error) {
	if options == nil {
		return nil, errors.New("options cannot be nil")
	}

	level, err := parseLevel(options.Level)
	if err != nil {
		return nil, errors.WithMessage(err, "invalid log level")
	}

	w, err := newOutput(&options.Output)
	if err != nil {
		return nil, errors.WithMessage(err, "create output failed")
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: options.AddSource,
	}
	if options.TimeFormat != "" && options.TimeFormat != time.RFC3339 {
		layout := options.TimeFormat
		handlerOpts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(a.Key, a.Value.Time().Format(layout))
			}
			return a
		}
	}

	var handler slog.Handler
	switch strings.ToLower(options.Format) {
	case "", "text":
		handler = slog.NewTextHandler(w, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	default:
		_ = w.Close()
		return nil, errors.Errorf("unsupported format: %s", options.Format)
	}

	slogger := slog.New(handler)
	if len(options.Fields) > 0 {
		args := make([]any, 0, len(options.Fields)*2)
		for k, v := range options.Fields {
			args = append(args, k, v)
		}
		slogger = slogger.With(args...)
	}

	return &SLog{slogger: slogger, closer: w}, nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, errors.Errorf("unknown level: %s", level)
}

// Close 关闭文件输出，标准输出上无操作
func (l *SLog) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *SLog) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

func (l *SLog) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

func (l *SLog) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

func (l *SLog) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

func (l *SLog) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slogger.DebugContext(ctx, msg, args...)
}

func (l *SLog) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slogger.InfoContext(ctx, msg, args...)
}

func (l *SLog) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slogger.WarnContext(ctx, msg, args...)
}

func (l *SLog) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slogger.ErrorContext(ctx, msg, args...)
}

func (l *SLog) With(args ...any) Logger {
	return &SLog{slogger: l.slogger.With(args...), closer: l.closer}
}

func (l *SLog) WithGroup(name string) Logger {
	return &SLog{slogger: l.slogger.WithGroup(name), closer: l.closer}
}
