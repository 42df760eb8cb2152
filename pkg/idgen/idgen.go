package idgen

import (
	"fmt"
	"sync"
	"time"

	"github.com/sony/sonyflake"
)

// Generator 递增 ID 生成器
// 使用 Sonyflake 算法生成全局唯一且递增的 ID
type Generator struct {
	sf *sonyflake.Sonyflake
}

var (
	defaultGenerator     *Generator
	defaultGeneratorOnce sync.Once
)

// DefaultGenerator 返回默认的 ID 生成器
func DefaultGenerator() *Generator {
	defaultGeneratorOnce.Do(func() {
		defaultGenerator = New()
	})
	return defaultGenerator
}

// New 创建新的 ID 生成器
func New() *Generator {
	sf := sonyflake.NewSonyflake(sonyflake.Settings{
		StartTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		// 单机部署，不依赖私有网卡地址推导机器 ID
		MachineID: func() (uint16, error) { return 1, nil },
	})
	if sf == nil {
		sf = sonyflake.NewSonyflake(sonyflake.Settings{
			StartTime: time.Now(),
			MachineID: func() (uint16, error) { return 1, nil },
		})
	}

	return &Generator{
		sf: sf,
	}
}

func (g *Generator) next(what string) (uint64, error) {
	id, err := g.sf.NextID()
	if err != nil {
		return 0, fmt.Errorf("generate %s ID: %w", what, err)
	}
	return id, nil
}

// GenerateTaskID 生成任务 ID
// 同一时间单位内并发调用也不会重复
func (g *Generator) GenerateTaskID() (uint64, error) {
	return g.next("task")
}

// GenerateDeviceRowID 生成设备记录的代理主键
func (g *Generator) GenerateDeviceRowID() (uint64, error) {
	return g.next("device row")
}
