package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── 盘点模块 DTO ──

// RecordCountRequest 登记一轮盘点
type RecordCountRequest struct {
	AddressID  string          `json:"address_id"  binding:"required"`
	PassNumber int             `json:"pass_number" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
	Note       string          `json:"note"        binding:"omitempty,max=500"`
}

// CountListRequest 盘点列表查询参数
type CountListRequest struct {
	AddressID string `form:"address_id" binding:"required"`
}

// AdjustCountRequest 调整盘点数量（原因由业务层校验）
type AdjustCountRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Reason   string          `json:"reason" binding:"max=500"`
}

// InventoryCountResponse 盘点记录响应
type InventoryCountResponse struct {
	ID         string          `json:"id"`
	AddressID  string          `json:"address_id"`
	PassNumber int             `json:"pass_number"`
	Quantity   decimal.Decimal `json:"quantity"`
	CountedBy  ActorRef        `json:"counted_by"`
	Note       string          `json:"note,omitempty"`
	Version    int             `json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// AdjustCountResponse 调整结果：更新后的盘点记录 + 对应审计记录
type AdjustCountResponse struct {
	Count InventoryCountResponse `json:"count"`
	Audit AuditRecordResponse    `json:"audit"`
}
