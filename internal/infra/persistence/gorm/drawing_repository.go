package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"interior-planboard/internal/domain"
	"interior-planboard/internal/repository"
)

// GormDrawingRepository 是 DrawingRepository 接口的 GORM 实现。
// 房间和标记以 JSON 列存储在 DrawingRecord 中。
type GormDrawingRepository struct {
	db *gorm.DB
}

// NewGormDrawingRepository 创建 GormDrawingRepository 实例
func NewGormDrawingRepository(db *gorm.DB) *GormDrawingRepository {
	if db == nil {
		panic("database connection cannot be nil for GormDrawingRepository")
	}
	return &GormDrawingRepository{db: db}
}

// Get 实现按 (owner, project, drawingType) 读取图纸
func (r *GormDrawingRepository) Get(ctx context.Context, key domain.DrawingKey) (*domain.Drawing, error) {
	var record domain.DrawingRecord
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND project = ? AND drawing_type = ?", key.OwnerID, key.Project, key.DrawingType).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrDrawingNotFound
		}
		return nil, fmt.Errorf("gorm: find drawing %s: %w", key, err)
	}
	drawing, err := record.ToDrawing()
	if err != nil {
		return nil, fmt.Errorf("gorm: decode drawing %s: %w", key, err)
	}
	return drawing, nil
}

// Set 实现图纸的写入（存在则覆盖同一行，不存在则创建）
func (r *GormDrawingRepository) Set(ctx context.Context, drawing *domain.Drawing) error {
	key := drawing.Key

	var record domain.DrawingRecord
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND project = ? AND drawing_type = ?", key.OwnerID, key.Project, key.DrawingType).
		First(&record).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("gorm: lookup drawing %s before save: %w", key, err)
	}

	if err := record.SetDrawing(drawing); err != nil {
		return fmt.Errorf("gorm: encode drawing %s: %w", key, err)
	}

	result := r.db.WithContext(ctx).Save(&record)
	if result.Error != nil {
		// 并发创建同一键时命中唯一复合索引 (MySQL 错误 1062)
		var mysqlErr *mysql.MySQLError
		if errors.As(result.Error, &mysqlErr) && mysqlErr.Number == 1062 {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save drawing %s: %w", key, result.Error)
	}
	return nil
}

// Remove 实现按键删除图纸
func (r *GormDrawingRepository) Remove(ctx context.Context, key domain.DrawingKey) error {
	result := r.db.WithContext(ctx).
		Where("owner_id = ? AND project = ? AND drawing_type = ?", key.OwnerID, key.Project, key.DrawingType).
		Delete(&domain.DrawingRecord{})
	if result.Error != nil {
		return fmt.Errorf("gorm: delete drawing %s: %w", key, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrDrawingNotFound
	}
	return nil
}

// ClearAll 实现删除某个 owner 的全部图纸
func (r *GormDrawingRepository) ClearAll(ctx context.Context, ownerID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Delete(&domain.DrawingRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("gorm: clear drawings of owner %d: %w", ownerID, result.Error)
	}
	return result.RowsAffected, nil
}
