package rdbx

import (
	"context"

	"github.com/pkg/errors"
)

// Future 后台执行的同步调用结果
type Future[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// Go 在新的 goroutine 中执行 fn，panic 转为错误返回
func Go[V any](fn func() (V, error)) *Future[V] {
	f := &Future[V]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = errors.Errorf("panic: %v", r)
			}
		}()
		f.value, f.err = fn()
	}()
	return f
}

// Wait 等待结果，ctx 结束时返回 ctx.Err()，后台调用不会被取消
func (f *Future[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Done 结果可用时关闭
func (f *Future[V]) Done() <-chan struct{} {
	return f.done
}
