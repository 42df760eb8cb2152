// Package idgen 提供递增 ID 生成器
//
// 使用 Sonyflake 算法生成全局唯一且递增的 64 位 ID，用于：
//   - 任务 ID（tasks.id）
//   - 设备记录代理主键（devices.id）
//
// 使用方式：
//
//	gen := idgen.DefaultGenerator()
//	taskID, err := gen.GenerateTaskID()
//	rowID, err := gen.GenerateDeviceRowID()
package idgen
