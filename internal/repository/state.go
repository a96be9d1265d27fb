package repository

import (
	"context"
	"time"

	"interior-planboard/internal/domain"
)

// StateRepository 定义了打开中图纸的实时状态镜像，通常由 Redis 实现。
//
// 每次变更后完整 Drawing 被镜像到这里（带 TTL），用途有二：
// 编辑会话重连时优先恢复未落库的最新状态；
// 周期性 sweep 任务比对镜像与数据库行，补偿丢失的 fire-and-forget 写入。
type StateRepository interface {
	// GetLiveDrawing 读取图纸的实时镜像。镜像不存在时返回 ErrDrawingNotFound。
	GetLiveDrawing(ctx context.Context, key domain.DrawingKey) (*domain.Drawing, error)

	// SetLiveDrawing 写入实时镜像并刷新 TTL。
	SetLiveDrawing(ctx context.Context, drawing *domain.Drawing, ttl time.Duration) error

	// RemoveLiveDrawing 删除实时镜像（图纸被删除或会话正常结束后调用）。
	RemoveLiveDrawing(ctx context.Context, key domain.DrawingKey) error

	// ListLiveKeys 扫描当前存在实时镜像的全部图纸键（sweep 任务使用）。
	ListLiveKeys(ctx context.Context) ([]domain.DrawingKey, error)
}
