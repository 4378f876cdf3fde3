package uid

import (
	"net"
	"sync/atomic"
	"time"
)

// 41 位时间戳 + 10 位机器号 + 12 位序列号
const (
	sequenceBits  = 12
	machineIDBits = 10

	maxSequence  = (1 << sequenceBits) - 1
	maxMachineID = (1 << machineIDBits) - 1

	machineIDShift = sequenceBits
	timestampShift = sequenceBits + machineIDBits
)

var snowflakeEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

type SnowflakeGenerator struct {
	// 高位为毫秒时间戳，低 12 位为序列号
	state     atomic.Int64
	machineID int64
	now       func() int64
}

func NewSnowflakeGenerator(machineID *int64) *SnowflakeGenerator {
	id := machineIDFromIP()
	if machineID != nil {
		id = *machineID
	}

	g := &SnowflakeGenerator{
		machineID: id & maxMachineID,
		now:       func() int64 { return time.Now().UnixMilli() - snowflakeEpoch },
	}
	g.state.Store(g.now() << sequenceBits)
	return g
}

func machineIDFromIP() int64 {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return 0
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipv4 := ipnet.IP.To4(); ipv4 != nil {
				return int64(ipv4[2])<<8 | int64(ipv4[3])
			}
		}
	}
	return 0
}

func (g *SnowflakeGenerator) Generate() any {
	return g.Next()
}

// Next 单调递增，同一毫秒序列号用尽时等待下一毫秒
func (g *SnowflakeGenerator) Next() int64 {
	for {
		old := g.state.Load()
		ts, seq := old>>sequenceBits, old&maxSequence

		now := g.now()
		if now <= ts {
			seq = (seq + 1) & maxSequence
			if seq == 0 {
				for now <= ts {
					now = g.now()
				}
				ts = now
			}
		} else {
			ts, seq = now, 0
		}

		if g.state.CompareAndSwap(old, ts<<sequenceBits|seq) {
			return ts<<timestampShift | g.machineID<<machineIDShift | seq
		}
	}
}
