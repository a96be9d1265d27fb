package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"interior-planboard/internal/repository"
)

// DrawingSweepHandler 处理周期性 drawing:sweep 任务：
// 遍历 Redis 实时镜像，凡是比数据库行更新的就重新落库。
// fire-and-forget 落库写入偶尔丢失是接受的设计风险，sweep 把恢复窗口
// 压缩到一个调度周期内。
type DrawingSweepHandler struct {
	stateRepo   repository.StateRepository
	drawingRepo repository.DrawingRepository
}

// NewDrawingSweepHandler 创建 DrawingSweepHandler 实例
func NewDrawingSweepHandler(stateRepo repository.StateRepository, drawingRepo repository.DrawingRepository) *DrawingSweepHandler {
	if stateRepo == nil {
		panic("StateRepository cannot be nil for DrawingSweepHandler")
	}
	if drawingRepo == nil {
		panic("DrawingRepository cannot be nil for DrawingSweepHandler")
	}
	return &DrawingSweepHandler{stateRepo: stateRepo, drawingRepo: drawingRepo}
}

// ProcessTask 实现 asynq.Handler。
func (h *DrawingSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithFields(logrus.Fields{"component": "worker", "task_type": t.Type()})

	keys, err := h.stateRepo.ListLiveKeys(ctx)
	if err != nil {
		return fmt.Errorf("sweep: list live drawings: %w", err)
	}

	repersisted := 0
	for _, key := range keys {
		live, err := h.stateRepo.GetLiveDrawing(ctx, key)
		if err != nil {
			if errors.Is(err, repository.ErrDrawingNotFound) {
				// SCAN 和 GET 之间镜像过期了
				continue
			}
			logCtx.WithField("drawing", key.String()).WithError(err).Warn("Sweep: failed to read live mirror")
			continue
		}

		stored, err := h.drawingRepo.Get(ctx, key)
		switch {
		case errors.Is(err, repository.ErrDrawingNotFound):
			// 图纸已被删除，镜像留给 TTL 处理
			continue
		case err != nil:
			logCtx.WithField("drawing", key.String()).WithError(err).Warn("Sweep: failed to read stored drawing")
			continue
		}

		if !live.UpdatedAt.After(stored.UpdatedAt) {
			continue
		}
		if err := h.drawingRepo.Set(ctx, live); err != nil {
			logCtx.WithField("drawing", key.String()).WithError(err).Warn("Sweep: re-persist failed")
			continue
		}
		repersisted++
	}

	logCtx.WithFields(logrus.Fields{"scanned": len(keys), "repersisted": repersisted}).Info("Drawing sweep complete")
	return nil
}
