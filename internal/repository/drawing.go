package repository

import (
	"context"

	"interior-planboard/internal/domain"
)

// DrawingRepository 定义了图纸记录的异步键值存储接口，
// 键为 (owner, project, drawingType)。引擎在会话期间以内存状态为权威，
// 每次变更后把完整 Drawing 镜像到这里（fire-and-forget，经 worker 队列）。
type DrawingRepository interface {
	// Get 按键读取图纸。不存在时返回 ErrDrawingNotFound。
	Get(ctx context.Context, key domain.DrawingKey) (*domain.Drawing, error)

	// Set 写入完整图纸记录（存在则覆盖，不存在则创建）。
	Set(ctx context.Context, drawing *domain.Drawing) error

	// Remove 删除指定键的图纸。不存在时返回 ErrDrawingNotFound。
	Remove(ctx context.Context, key domain.DrawingKey) error

	// ClearAll 删除某个 owner 的全部图纸，返回删除数量。
	ClearAll(ctx context.Context, ownerID uint) (int64, error)
}
