// Package mocks 提供 repository 接口的 testify Mock 实现，供 service 层测试使用。
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"interior-planboard/internal/domain"
)

// DrawingRepository 是 repository.DrawingRepository 的 Mock。
type DrawingRepository struct {
	mock.Mock
}

func (m *DrawingRepository) Get(ctx context.Context, key domain.DrawingKey) (*domain.Drawing, error) {
	args := m.Called(ctx, key)
	if d, ok := args.Get(0).(*domain.Drawing); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DrawingRepository) Set(ctx context.Context, drawing *domain.Drawing) error {
	args := m.Called(ctx, drawing)
	return args.Error(0)
}

func (m *DrawingRepository) Remove(ctx context.Context, key domain.DrawingKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *DrawingRepository) ClearAll(ctx context.Context, ownerID uint) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}
