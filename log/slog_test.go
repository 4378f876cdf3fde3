package log

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewSLogWithOptions(t *testing.T) {
	tests := []struct {
		name    string
		options *Options
		wantErr bool
	}{
		{name: "nil options", options: nil, wantErr: true},
		{name: "default stdout", options: &Options{}, wantErr: false},
		{name: "json stderr", options: &Options{Level: "debug", Format: "json", Output: OutputOptions{Type: "stderr"}}, wantErr: false},
		{name: "invalid level", options: &Options{Level: "invalid"}, wantErr: true},
		{name: "invalid format", options: &Options{Format: "xml"}, wantErr: true},
		{name: "invalid output", options: &Options{Output: OutputOptions{Type: "kafka"}}, wantErr: true},
		{name: "file without path", options: &Options{Output: OutputOptions{Type: "file"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewSLogWithOptions(tt.options)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSLogWithOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && logger == nil {
				t.Fatal("NewSLogWithOptions() returned nil logger")
			}
		})
	}
}

func TestSLogFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "rdbx.log")

	logger, err := NewSLogWithOptions(&Options{
		Level:  "debug",
		Format: "json",
		Output: OutputOptions{Type: "file", Path: path},
		Fields: map[string]any{"service": "rdbx"},
	})
	if err != nil {
		t.Fatalf("NewSLogWithOptions() error = %v", err)
	}

	logger.Debug("debug message", "sql", "SELECT 1")
	logger.With("component", "database").InfoContext(context.Background(), "info message")
	logger.WithGroup("query").Warn("warn message", "table", "book")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	for _, want := range []string{`"msg":"debug message"`, `"sql":"SELECT 1"`, `"component":"database"`, `"service":"rdbx"`, `"query":{"table":"book"}`} {
		if !strings.Contains(string(content), want) {
			t.Errorf("log content missing %s, got %s", want, content)
		}
	}
}

func TestSLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rdbx.log")

	logger, err := NewSLogWithOptions(&Options{
		Level:  "warn",
		Output: OutputOptions{Type: "file", Path: path},
	})
	if err != nil {
		t.Fatalf("NewSLogWithOptions() error = %v", err)
	}
	logger.Info("hidden")
	logger.Error("shown")
	_ = logger.Close()

	content, _ := os.ReadFile(path)
	if strings.Contains(string(content), "hidden") {
		t.Errorf("info message should be filtered, got %s", content)
	}
	if !strings.Contains(string(content), "shown") {
		t.Errorf("error message missing, got %s", content)
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}

	old := Default()
	defer SetDefault(old)

	discard := Discard()
	SetDefault(discard)
	if Default() != discard {
		t.Error("SetDefault() did not replace default logger")
	}

	SetDefault(nil)
	if Default() != discard {
		t.Error("SetDefault(nil) should be ignored")
	}
}
