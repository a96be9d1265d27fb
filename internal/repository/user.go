package repository

import (
	"context"

	"interior-planboard/internal/domain"
)

// UserRepository 定义了员工账号的存储和检索操作。
type UserRepository interface {
	// FindByID 按用户 ID 查找。不存在时返回 ErrUserNotFound。
	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// FindByUsername 按用户名查找。不存在时返回 ErrUserNotFound。
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// Save 保存用户（基于 ID 存在则更新，否则创建）。
	// 唯一约束冲突时返回 ErrDuplicateEntry。
	Save(ctx context.Context, user *domain.User) error
}
