package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"interior-planboard/internal/repository"
	"interior-planboard/internal/tasks"
)

// DrawingPersistenceHandler 处理 drawing:persist 任务：把完整图纸覆盖写入数据库。
type DrawingPersistenceHandler struct {
	drawingRepo repository.DrawingRepository
}

// NewDrawingPersistenceHandler 创建 DrawingPersistenceHandler 实例
func NewDrawingPersistenceHandler(drawingRepo repository.DrawingRepository) *DrawingPersistenceHandler {
	if drawingRepo == nil {
		panic("DrawingRepository cannot be nil for DrawingPersistenceHandler")
	}
	return &DrawingPersistenceHandler{drawingRepo: drawingRepo}
}

// ProcessTask 实现 asynq.Handler。
// 返回错误时 asynq 按重试策略重新投递。
func (h *DrawingPersistenceHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.DrawingPersistencePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// 载荷坏了重试也没用，标记为不可重试
		return fmt.Errorf("unmarshal drawing persistence payload: %v: %w", err, asynq.SkipRetry)
	}

	logCtx := logrus.WithFields(logrus.Fields{
		"component": "worker",
		"task_type": t.Type(),
		"drawing":   payload.Drawing.Key.String(),
	})

	if err := h.drawingRepo.Set(ctx, &payload.Drawing); err != nil {
		logCtx.WithError(err).Warn("Drawing persistence task failed, will retry")
		return fmt.Errorf("persist drawing %s: %w", payload.Drawing.Key, err)
	}

	logCtx.Debug("Drawing persisted")
	return nil
}
