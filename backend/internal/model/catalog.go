package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogItem 物料目录表 — 对应 catalog_items
// code 在 active 记录中唯一（PostgreSQL 部分唯一索引）
type CatalogItem struct {
	ItemID          string              `gorm:"type:uuid;primaryKey"                                                   json:"item_id"`
	Code            string              `gorm:"type:varchar(16);not null;index:idx_catalog_items_active_code,unique,where:active = true" json:"code"`
	Description     string              `gorm:"type:varchar(500);not null"                                             json:"description"`
	ManufacturerID  *string             `gorm:"type:varchar(64)"                                                       json:"manufacturer_id,omitempty"`
	MaterialType    *string             `gorm:"type:varchar(50)"                                                       json:"material_type,omitempty"`
	Weight          decimal.NullDecimal `gorm:"type:numeric(12,3)"                                                     json:"weight"`
	Active          bool                `gorm:"not null;default:true"                                                  json:"active"`
	SourceRequestID *string             `gorm:"type:uuid;index"                                                        json:"source_request_id,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (CatalogItem) TableName() string { return "catalog_items" }

func (i *CatalogItem) BeforeCreate(_ *gorm.DB) error {
	newID(&i.ItemID)
	return nil
}

// ItemAddress 物料库位表 — 对应 item_addresses
// 盘点记录引用的"已定位物料"即为库位记录
type ItemAddress struct {
	AddressID string `gorm:"type:uuid;primaryKey"        json:"address_id"`
	ItemID    string `gorm:"type:uuid;not null;index"    json:"item_id"`
	Warehouse string `gorm:"type:varchar(50);not null"   json:"warehouse"`
	Zone      string `gorm:"type:varchar(50)"            json:"zone,omitempty"`
	Aisle     string `gorm:"type:varchar(20)"            json:"aisle,omitempty"`
	Shelf     string `gorm:"type:varchar(20)"            json:"shelf,omitempty"`
	Position  string `gorm:"type:varchar(20)"            json:"position,omitempty"`
	Note      string `gorm:"type:varchar(500)"           json:"note,omitempty"`
	BaseModel

	Item *CatalogItem `gorm:"foreignKey:ItemID;references:ItemID" json:"item,omitempty"`
}

func (ItemAddress) TableName() string { return "item_addresses" }

func (a *ItemAddress) BeforeCreate(_ *gorm.DB) error {
	newID(&a.AddressID)
	return nil
}

// Label 库位展示文本，如 "CD01-A-03-2-05"
func (a *ItemAddress) Label() string {
	parts := []string{a.Warehouse}
	for _, p := range []string{a.Zone, a.Aisle, a.Shelf, a.Position} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "-")
}

// 库存移动类型
const (
	MovementIn  = "in"
	MovementOut = "out"
)

// StockMovement 库存移动流水 — 对应 stock_movements（只追加）
type StockMovement struct {
	MovementID string          `gorm:"type:uuid;primaryKey"      json:"movement_id"`
	ItemID     string          `gorm:"type:uuid;not null;index"  json:"item_id"`
	AddressID  *string         `gorm:"type:uuid"                 json:"address_id,omitempty"`
	Type       string          `gorm:"type:varchar(10);not null" json:"type"` // in | out
	Quantity   decimal.Decimal `gorm:"type:numeric(18,3);not null" json:"quantity"`
	ActorID    string          `gorm:"type:varchar(64);not null" json:"actor_id"`
	ActorName  string          `gorm:"type:varchar(100)"         json:"actor_name"`
	Note       string          `gorm:"type:varchar(500)"         json:"note,omitempty"`
	CreatedAt  time.Time       `gorm:"not null;index"            json:"created_at"`
}

func (StockMovement) TableName() string { return "stock_movements" }

func (m *StockMovement) BeforeCreate(_ *gorm.DB) error {
	newID(&m.MovementID)
	return nil
}

// Summary 移动摘要文本
func (m *StockMovement) Summary() string {
	sign := "+"
	if m.Type == MovementOut {
		sign = "-"
	}
	return fmt.Sprintf("%s%s", sign, m.Quantity.String())
}
