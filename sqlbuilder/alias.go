package sqlbuilder

import (
	"strconv"
	"strings"
)

// Allocator 一次遍历内的别名分配器，计数器在每次遍历开始时重置
type Allocator struct {
	counter int
	used    map[string]struct{}
}

// NewAllocator reserved 为保留的别名，通常是根节点的表名
func NewAllocator(reserved ...string) *Allocator {
	a := &Allocator{used: map[string]struct{}{}}
	for _, r := range reserved {
		a.used[r] = struct{}{}
	}
	return a
}

// Next 为表分配 {表名首字母}{计数} 形式的别名，跳过已占用的名字
func (a *Allocator) Next(table string) string {
	prefix := "t"
	if table != "" {
		prefix = strings.ToLower(table[:1])
	}

	for {
		a.counter++
		alias := prefix + strconv.Itoa(a.counter)
		if _, ok := a.used[alias]; ok {
			continue
		}
		a.used[alias] = struct{}{}
		return alias
	}
}

// Label 列标签 <alias>_<column>，构造语句与读取结果共用
func Label(alias, column string) string {
	return alias + "_" + column
}
