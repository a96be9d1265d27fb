// Package tasks 定义 asynq 任务类型与载荷构造函数。
package tasks

import (
	"encoding/json"

	"interior-planboard/internal/domain"
)

// 任务类型常量
const (
	// TypeDrawingPersistence 把一张完整图纸异步落库（每次变更后入队，fire-and-forget）。
	TypeDrawingPersistence = "drawing:persist"
	// TypeDrawingSweep 周期性比对 Redis 实时镜像与数据库行，补偿丢失的落库写入。
	TypeDrawingSweep = "drawing:sweep"
)

// DrawingPersistencePayload 定义了图纸持久化任务的数据结构。
// 直接携带完整 Drawing，worker 端整体覆盖写入。
type DrawingPersistencePayload struct {
	Drawing domain.Drawing `json:"drawing"`
}

// NewDrawingPersistenceTask 构造图纸持久化任务的载荷。
func NewDrawingPersistenceTask(drawing domain.Drawing) ([]byte, error) {
	payload := DrawingPersistencePayload{Drawing: drawing}
	return json.Marshal(payload)
}

// NewDrawingSweepTask 构造周期性镜像比对任务的载荷（无数据）。
func NewDrawingSweepTask() ([]byte, error) {
	return json.Marshal(struct{}{})
}
