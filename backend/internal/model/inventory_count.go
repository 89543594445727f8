package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventoryCount 盘点记录表 — 对应 inventory_counts
// 每个 (库位, 轮次) 只创建一次；之后的修改必须走调整流程，历史只存在于审计日志
type InventoryCount struct {
	CountID       string          `gorm:"type:uuid;primaryKey"                                            json:"count_id"`
	AddressID     string          `gorm:"type:uuid;not null;uniqueIndex:uq_inventory_counts_address_pass" json:"address_id"`
	PassNumber    int             `gorm:"type:smallint;not null;uniqueIndex:uq_inventory_counts_address_pass" json:"pass_number"`
	Quantity      decimal.Decimal `gorm:"type:numeric(18,3);not null"                                     json:"quantity"`
	CountedBy     string          `gorm:"type:varchar(64);not null"                                       json:"counted_by"`
	CountedByName string          `gorm:"type:varchar(100)"                                               json:"counted_by_name"`
	Note          string          `gorm:"type:varchar(500)"                                               json:"note,omitempty"`
	Version       int             `gorm:"not null;default:1"                                              json:"version"`
	BaseModel

	Address *ItemAddress `gorm:"foreignKey:AddressID;references:AddressID" json:"address,omitempty"`
}

// TableName 指定表名
func (InventoryCount) TableName() string { return "inventory_counts" }

func (c *InventoryCount) BeforeCreate(_ *gorm.DB) error {
	newID(&c.CountID)
	return nil
}
