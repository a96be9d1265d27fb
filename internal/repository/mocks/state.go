package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"interior-planboard/internal/domain"
)

// StateRepository 是 repository.StateRepository 的 Mock。
type StateRepository struct {
	mock.Mock
}

func (m *StateRepository) GetLiveDrawing(ctx context.Context, key domain.DrawingKey) (*domain.Drawing, error) {
	args := m.Called(ctx, key)
	if d, ok := args.Get(0).(*domain.Drawing); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StateRepository) SetLiveDrawing(ctx context.Context, drawing *domain.Drawing, ttl time.Duration) error {
	args := m.Called(ctx, drawing, ttl)
	return args.Error(0)
}

func (m *StateRepository) RemoveLiveDrawing(ctx context.Context, key domain.DrawingKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *StateRepository) ListLiveKeys(ctx context.Context) ([]domain.DrawingKey, error) {
	args := m.Called(ctx)
	if keys, ok := args.Get(0).([]domain.DrawingKey); ok {
		return keys, args.Error(1)
	}
	return nil, args.Error(1)
}
