package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"interior-planboard/internal/domain"
	"interior-planboard/internal/repository"
	"interior-planboard/internal/repository/mocks"
	"interior-planboard/internal/tasks"
	"interior-planboard/internal/worker"
)

func sweepTask(t *testing.T) *asynq.Task {
	t.Helper()
	payload, err := tasks.NewDrawingSweepTask()
	require.NoError(t, err)
	return asynq.NewTask(tasks.TypeDrawingSweep, payload)
}

func TestDrawingSweepHandler_RepersistsNewerMirrors(t *testing.T) {
	stateRepo := new(mocks.StateRepository)
	drawingRepo := new(mocks.DrawingRepository)
	handler := worker.NewDrawingSweepHandler(stateRepo, drawingRepo)

	now := time.Now()
	staleKey := domain.DrawingKey{OwnerID: 1, Project: "a", DrawingType: "electrical"}
	freshKey := domain.DrawingKey{OwnerID: 1, Project: "b", DrawingType: "lighting"}

	stateRepo.On("ListLiveKeys", mock.Anything).Return([]domain.DrawingKey{staleKey, freshKey}, nil).Once()

	// staleKey: 镜像比数据库行新（落库任务丢失过），需要补写
	stateRepo.On("GetLiveDrawing", mock.Anything, staleKey).
		Return(&domain.Drawing{Key: staleKey, UpdatedAt: now}, nil).Once()
	drawingRepo.On("Get", mock.Anything, staleKey).
		Return(&domain.Drawing{Key: staleKey, UpdatedAt: now.Add(-10 * time.Minute)}, nil).Once()
	drawingRepo.On("Set", mock.Anything, mock.MatchedBy(func(d *domain.Drawing) bool {
		return d.Key == staleKey && d.UpdatedAt.Equal(now)
	})).Return(nil).Once()

	// freshKey: 数据库已是最新，不写
	stateRepo.On("GetLiveDrawing", mock.Anything, freshKey).
		Return(&domain.Drawing{Key: freshKey, UpdatedAt: now.Add(-time.Hour)}, nil).Once()
	drawingRepo.On("Get", mock.Anything, freshKey).
		Return(&domain.Drawing{Key: freshKey, UpdatedAt: now.Add(-time.Hour)}, nil).Once()

	err := handler.ProcessTask(context.Background(), sweepTask(t))
	assert.NoError(t, err)
	stateRepo.AssertExpectations(t)
	drawingRepo.AssertExpectations(t)
}

func TestDrawingSweepHandler_SkipsDeletedDrawings(t *testing.T) {
	stateRepo := new(mocks.StateRepository)
	drawingRepo := new(mocks.DrawingRepository)
	handler := worker.NewDrawingSweepHandler(stateRepo, drawingRepo)

	key := domain.DrawingKey{OwnerID: 2, Project: "demo", DrawingType: "plumbing"}
	stateRepo.On("ListLiveKeys", mock.Anything).Return([]domain.DrawingKey{key}, nil).Once()
	stateRepo.On("GetLiveDrawing", mock.Anything, key).
		Return(&domain.Drawing{Key: key, UpdatedAt: time.Now()}, nil).Once()
	// 图纸已被删除：镜像留给 TTL 处理，不能复活数据
	drawingRepo.On("Get", mock.Anything, key).Return(nil, repository.ErrDrawingNotFound).Once()

	err := handler.ProcessTask(context.Background(), sweepTask(t))
	assert.NoError(t, err)
	drawingRepo.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
}

func TestDrawingSweepHandler_ExpiredMirrorBetweenScanAndGet(t *testing.T) {
	stateRepo := new(mocks.StateRepository)
	drawingRepo := new(mocks.DrawingRepository)
	handler := worker.NewDrawingSweepHandler(stateRepo, drawingRepo)

	key := domain.DrawingKey{OwnerID: 2, Project: "demo", DrawingType: "electrical"}
	stateRepo.On("ListLiveKeys", mock.Anything).Return([]domain.DrawingKey{key}, nil).Once()
	stateRepo.On("GetLiveDrawing", mock.Anything, key).Return(nil, repository.ErrDrawingNotFound).Once()

	err := handler.ProcessTask(context.Background(), sweepTask(t))
	assert.NoError(t, err)
	drawingRepo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}
