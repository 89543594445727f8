package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Sequence       SequenceRepository
	CodeRequest    CodeRequestRepository
	CatalogItem    CatalogItemRepository
	ItemAddress    ItemAddressRepository
	InventoryCount InventoryCountRepository
	StockMovement  StockMovementRepository
	Audit          AuditRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:             db,
		Sequence:       NewSequenceRepo(db),
		CodeRequest:    NewCodeRequestRepo(db),
		CatalogItem:    NewCatalogItemRepo(db),
		ItemAddress:    NewItemAddressRepo(db),
		InventoryCount: NewInventoryCountRepo(db),
		StockMovement:  NewStockMovementRepo(db),
		Audit:          NewAuditRepo(db),
	}
}

// WithTx 返回绑定到事务连接的 Repository
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction 在单个事务中执行 fn，fn 返回错误或 panic 时整体回滚
// fn 内只能使用传入的 txRepo，否则写入不在同一提交边界内
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
