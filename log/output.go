package log

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// OutputOptions 输出目标：stdout, stderr, file
type OutputOptions struct {
	Type string `cfg:"type" def:"stdout" validate:"omitempty,oneof=stdout stderr file"`
	Path string `cfg:"path"`
}

func newOutput(options *OutputOptions) (io.WriteCloser, error) {
	switch options.Type {
	case "", "stdout":
		return nopCloser{os.Stdout}, nil
	case "stderr":
		return nopCloser{os.Stderr}, nil
	case "file":
		return newFileOutput(options.Path)
	}
	return nil, errors.Errorf("unsupported output type: %s", options.Type)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}

// fileOutput 追加写文件，并发安全
type fileOutput struct {
	mu   sync.Mutex
	file *os.File
}

func newFileOutput(path string) (*fileOutput, error) {
	if path == "" {
		return nil, errors.New("file path is required")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create directory %s failed", dir)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open file %s failed", path)
	}

	return &fileOutput{file: file}, nil
}

func (f *fileOutput) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return 0, errors.New("file is closed")
	}
	return f.file.Write(p)
}

func (f *fileOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
