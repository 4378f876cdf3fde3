package uid

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSnowflakeGenerator(t *testing.T) {
	Convey("测试 snowflake 单调递增且不重复", t, func() {
		machineID := int64(3)
		g := NewSnowflakeGenerator(&machineID)

		prev := g.Next()
		So((prev>>machineIDShift)&maxMachineID, ShouldEqual, int64(3))
		for i := 0; i < 10000; i++ {
			id := g.Next()
			So(id > prev, ShouldBeTrue)
			prev = id
		}
	})

	Convey("测试同一毫秒内序列号用尽", t, func() {
		machineID := int64(0)
		g := NewSnowflakeGenerator(&machineID)
		clock := int64(1000)
		g.now = func() int64 { return clock }
		g.state.Store(clock << sequenceBits)

		seen := map[int64]struct{}{}
		for i := 0; i < maxSequence; i++ {
			seen[g.Next()] = struct{}{}
		}
		So(len(seen), ShouldEqual, maxSequence)

		calls := 0
		g.now = func() int64 {
			calls++
			if calls > 2 {
				return clock + 1
			}
			return clock
		}
		id := g.Next()
		So(id>>timestampShift, ShouldEqual, clock+1)
		So(id&maxSequence, ShouldEqual, int64(0))
	})

	Convey("测试并发生成", t, func() {
		g := NewSnowflakeGenerator(nil)
		var mu sync.Mutex
		var wg sync.WaitGroup
		seen := map[int64]struct{}{}
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 1000; j++ {
					id := g.Next()
					mu.Lock()
					seen[id] = struct{}{}
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		So(len(seen), ShouldEqual, 8000)
	})
}

func TestNewGeneratorWithOptions(t *testing.T) {
	Convey("测试 NewGeneratorWithOptions", t, func() {
		g, err := NewGeneratorWithOptions(&Options{})
		So(err, ShouldBeNil)
		_, ok := g.Generate().(int64)
		So(ok, ShouldBeTrue)

		g, err = NewGeneratorWithOptions(&Options{Type: "uuid", Version: "v7"})
		So(err, ShouldBeNil)
		u, ok := g.Generate().(uuid.UUID)
		So(ok, ShouldBeTrue)
		So(u.Version(), ShouldEqual, uuid.Version(7))

		g, err = NewGeneratorWithOptions(&Options{Type: "uuid", Version: "v4"})
		So(err, ShouldBeNil)
		So(g.Generate().(uuid.UUID).Version(), ShouldEqual, uuid.Version(4))

		_, err = NewGeneratorWithOptions(&Options{Type: "uuid", Version: "v1"})
		So(err, ShouldNotBeNil)
		_, err = NewGeneratorWithOptions(&Options{Type: "redis"})
		So(err, ShouldNotBeNil)
		_, err = NewGeneratorWithOptions(nil)
		So(err, ShouldNotBeNil)
	})
}
