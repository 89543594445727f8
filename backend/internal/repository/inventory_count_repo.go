package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"valve-vault/backend/internal/model"
	pkgerrors "valve-vault/backend/pkg/errors"
)

// InventoryCountRepository 盘点记录数据访问接口
type InventoryCountRepository interface {
	Create(ctx context.Context, count *model.InventoryCount) error
	GetByID(ctx context.Context, id string) (*model.InventoryCount, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.InventoryCount, error)
	ListByAddress(ctx context.Context, addressID string) ([]model.InventoryCount, error)
	ListByAddresses(ctx context.Context, addressIDs []string) ([]model.InventoryCount, error)
	// UpdateQuantity 以 version 做条件更新数量
	UpdateQuantity(ctx context.Context, count *model.InventoryCount) error
}

type inventoryCountRepo struct {
	db *gorm.DB
}

func NewInventoryCountRepo(db *gorm.DB) InventoryCountRepository {
	return &inventoryCountRepo{db: db}
}

func (r *inventoryCountRepo) Create(ctx context.Context, count *model.InventoryCount) error {
	return r.db.WithContext(ctx).Create(count).Error
}

func (r *inventoryCountRepo) GetByID(ctx context.Context, id string) (*model.InventoryCount, error) {
	var count model.InventoryCount
	err := r.db.WithContext(ctx).
		Where("count_id = ?", id).
		First(&count).Error
	if err != nil {
		return nil, err
	}
	return &count, nil
}

func (r *inventoryCountRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.InventoryCount, error) {
	var count model.InventoryCount
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("count_id = ?", id).
		First(&count).Error
	if err != nil {
		return nil, err
	}
	return &count, nil
}

func (r *inventoryCountRepo) ListByAddress(ctx context.Context, addressID string) ([]model.InventoryCount, error) {
	var counts []model.InventoryCount
	err := r.db.WithContext(ctx).
		Where("address_id = ?", addressID).
		Order("pass_number ASC").
		Find(&counts).Error
	return counts, err
}

func (r *inventoryCountRepo) ListByAddresses(ctx context.Context, addressIDs []string) ([]model.InventoryCount, error) {
	if len(addressIDs) == 0 {
		return nil, nil
	}
	var counts []model.InventoryCount
	err := r.db.WithContext(ctx).
		Where("address_id IN ?", addressIDs).
		Order("created_at ASC").
		Find(&counts).Error
	return counts, err
}

func (r *inventoryCountRepo) UpdateQuantity(ctx context.Context, count *model.InventoryCount) error {
	oldVersion := count.Version
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.InventoryCount{}).
		Where("count_id = ? AND version = ?", count.CountID, oldVersion).
		Updates(map[string]interface{}{
			"quantity":   count.Quantity,
			"updated_by": count.UpdatedBy,
			"updated_at": now,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	count.Version = oldVersion + 1
	count.UpdatedAt = now
	return nil
}
