package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── 物料目录模块 DTO ──

// CreateCatalogItemRequest 直接创建物料（不经过编码申请）
type CreateCatalogItemRequest struct {
	Code           string           `json:"code"`
	Description    string           `json:"description"     binding:"required,max=500"`
	ManufacturerID *string          `json:"manufacturer_id" binding:"omitempty,max=64"`
	MaterialType   *string          `json:"material_type"   binding:"omitempty,max=50"`
	Weight         *decimal.Decimal `json:"weight"`
}

// CatalogItemResponse 物料响应
type CatalogItemResponse struct {
	ID              string           `json:"id"`
	Code            string           `json:"code"`
	Description     string           `json:"description"`
	ManufacturerID  *string          `json:"manufacturer_id,omitempty"`
	MaterialType    *string          `json:"material_type,omitempty"`
	Weight          *decimal.Decimal `json:"weight,omitempty"`
	Active          bool             `json:"active"`
	SourceRequestID *string          `json:"source_request_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// CreateAddressRequest 为物料登记库位
type CreateAddressRequest struct {
	Warehouse string `json:"warehouse" binding:"required,max=50"`
	Zone      string `json:"zone"      binding:"omitempty,max=50"`
	Aisle     string `json:"aisle"     binding:"omitempty,max=20"`
	Shelf     string `json:"shelf"     binding:"omitempty,max=20"`
	Position  string `json:"position"  binding:"omitempty,max=20"`
	Note      string `json:"note"      binding:"omitempty,max=500"`
}

// AddressResponse 库位响应
type AddressResponse struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	Label     string    `json:"label"`
	Warehouse string    `json:"warehouse"`
	Zone      string    `json:"zone,omitempty"`
	Aisle     string    `json:"aisle,omitempty"`
	Shelf     string    `json:"shelf,omitempty"`
	Position  string    `json:"position,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateMovementRequest 登记库存移动
type CreateMovementRequest struct {
	AddressID *string         `json:"address_id"`
	Type      string          `json:"type"     binding:"required,oneof=in out"`
	Quantity  decimal.Decimal `json:"quantity"`
	Note      string          `json:"note"     binding:"omitempty,max=500"`
}

// MovementResponse 库存移动响应
type MovementResponse struct {
	ID        string          `json:"id"`
	ItemID    string          `json:"item_id"`
	AddressID *string         `json:"address_id,omitempty"`
	Type      string          `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Actor     ActorRef        `json:"actor"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ── 时间线 ──

// TimelineEvent 时间线中的一个事件
type TimelineEvent struct {
	At        time.Time         `json:"at"`
	Kind      string            `json:"kind"`
	Source    string            `json:"source"` // code_request | catalog_item | inventory_count | stock_movement
	SubjectID string            `json:"subject_id"`
	Actor     ActorRef          `json:"actor"`
	Summary   string            `json:"summary,omitempty"`
	Reason    *string           `json:"reason,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// TimelineResponse 物料完整时间线
type TimelineResponse struct {
	ItemID string          `json:"item_id"`
	Code   string          `json:"code"`
	Events []TimelineEvent `json:"events"`
}
