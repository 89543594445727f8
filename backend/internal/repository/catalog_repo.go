package repository

import (
	"context"

	"gorm.io/gorm"

	"valve-vault/backend/internal/model"
)

// CatalogItemRepository 物料目录数据访问接口
type CatalogItemRepository interface {
	Create(ctx context.Context, item *model.CatalogItem) error
	GetByID(ctx context.Context, id string) (*model.CatalogItem, error)
	ExistsActiveCode(ctx context.Context, code string) (bool, error)
}

// ItemAddressRepository 库位数据访问接口
type ItemAddressRepository interface {
	Create(ctx context.Context, addr *model.ItemAddress) error
	GetByID(ctx context.Context, id string) (*model.ItemAddress, error)
	ListByItem(ctx context.Context, itemID string) ([]model.ItemAddress, error)
}

// StockMovementRepository 库存移动数据访问接口（只追加）
type StockMovementRepository interface {
	Create(ctx context.Context, m *model.StockMovement) error
	ListByItem(ctx context.Context, itemID string) ([]model.StockMovement, error)
}

// ── CatalogItem Repository 实现 ──

type catalogItemRepo struct {
	db *gorm.DB
}

func NewCatalogItemRepo(db *gorm.DB) CatalogItemRepository {
	return &catalogItemRepo{db: db}
}

func (r *catalogItemRepo) Create(ctx context.Context, item *model.CatalogItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *catalogItemRepo) GetByID(ctx context.Context, id string) (*model.CatalogItem, error) {
	var item model.CatalogItem
	err := r.db.WithContext(ctx).
		Where("item_id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *catalogItemRepo) ExistsActiveCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.CatalogItem{}).
		Where("code = ? AND active = ?", code, true).
		Count(&count).Error
	return count > 0, err
}

// ── ItemAddress Repository 实现 ──

type itemAddressRepo struct {
	db *gorm.DB
}

func NewItemAddressRepo(db *gorm.DB) ItemAddressRepository {
	return &itemAddressRepo{db: db}
}

func (r *itemAddressRepo) Create(ctx context.Context, addr *model.ItemAddress) error {
	return r.db.WithContext(ctx).Create(addr).Error
}

func (r *itemAddressRepo) GetByID(ctx context.Context, id string) (*model.ItemAddress, error) {
	var addr model.ItemAddress
	err := r.db.WithContext(ctx).
		Where("address_id = ?", id).
		First(&addr).Error
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func (r *itemAddressRepo) ListByItem(ctx context.Context, itemID string) ([]model.ItemAddress, error) {
	var addrs []model.ItemAddress
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at ASC").
		Find(&addrs).Error
	return addrs, err
}

// ── StockMovement Repository 实现 ──

type stockMovementRepo struct {
	db *gorm.DB
}

func NewStockMovementRepo(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepo{db: db}
}

func (r *stockMovementRepo) Create(ctx context.Context, m *model.StockMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *stockMovementRepo) ListByItem(ctx context.Context, itemID string) ([]model.StockMovement, error) {
	var ms []model.StockMovement
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at ASC").
		Find(&ms).Error
	return ms, err
}
