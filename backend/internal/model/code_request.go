package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 编码申请状态
const (
	RequestStatusPending      = "pending"
	RequestStatusClaimed      = "claimed"
	RequestStatusCodeProposed = "code_proposed"
	RequestStatusApproved     = "approved"
	RequestStatusRejected     = "rejected"
)

// CodeRequest 物料编码申请表 — 对应 code_requests
//
// 认领锁直接编码在本行的 claimed_* 字段上，没有独立的锁表；
// 所有状态迁移都在行锁 + version 条件更新下完成。
type CodeRequest struct {
	RequestID      string              `gorm:"type:uuid;primaryKey"                        json:"request_id"`
	RequestNumber  int64               `gorm:"not null;uniqueIndex"                        json:"request_number"`
	Description    string              `gorm:"type:varchar(500);not null"                  json:"description"`
	ManufacturerID *string             `gorm:"type:varchar(64)"                            json:"manufacturer_id,omitempty"`
	MaterialType   *string             `gorm:"type:varchar(50)"                            json:"material_type,omitempty"`
	Weight         decimal.NullDecimal `gorm:"type:numeric(12,3)"                          json:"weight"`
	RequesterID    string              `gorm:"type:varchar(64);not null"                   json:"requester_id"`
	RequesterName  string              `gorm:"type:varchar(100)"                           json:"requester_name"`
	Status         string              `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"` // pending | claimed | code_proposed | approved | rejected

	// 认领（仅 claimed / code_proposed 时非空）
	ClaimedBy     *string    `gorm:"type:varchar(64)"  json:"claimed_by,omitempty"`
	ClaimedByName *string    `gorm:"type:varchar(100)" json:"claimed_by_name,omitempty"`
	ClaimedAt     *time.Time `json:"claimed_at,omitempty"`

	// 拟定编码（仅 code_proposed / approved 时非空）
	ProposedCode        *string    `gorm:"type:varchar(16)"  json:"proposed_code,omitempty"`
	InternalDescription *string    `gorm:"type:varchar(500)" json:"internal_description,omitempty"`
	ProposedBy          *string    `gorm:"type:varchar(64)"  json:"proposed_by,omitempty"`
	ProposedAt          *time.Time `json:"proposed_at,omitempty"`

	// 结案（approved / rejected 二选一）
	ApprovedBy    *string    `gorm:"type:varchar(64)"  json:"approved_by,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	RejectedBy    *string    `gorm:"type:varchar(64)"  json:"rejected_by,omitempty"`
	RejectedAt    *time.Time `json:"rejected_at,omitempty"`
	RejectReason  string     `gorm:"type:varchar(500)" json:"reject_reason,omitempty"`
	CatalogItemID *string    `gorm:"type:uuid"         json:"catalog_item_id,omitempty"`

	VersionedModel
}

// TableName 指定表名
func (CodeRequest) TableName() string { return "code_requests" }

func (r *CodeRequest) BeforeCreate(_ *gorm.DB) error {
	newID(&r.RequestID)
	return nil
}

// IsTerminal 是否已结案
func (r *CodeRequest) IsTerminal() bool {
	return r.Status == RequestStatusApproved || r.Status == RequestStatusRejected
}

// IsHeldBy 判断 actorID 是否为当前认领人
func (r *CodeRequest) IsHeldBy(actorID string) bool {
	return r.ClaimedBy != nil && *r.ClaimedBy == actorID
}

// ClearClaim 清空认领字段
func (r *CodeRequest) ClearClaim() {
	r.ClaimedBy = nil
	r.ClaimedByName = nil
	r.ClaimedAt = nil
}

// ClearProposal 清空拟定编码字段
func (r *CodeRequest) ClearProposal() {
	r.ProposedCode = nil
	r.InternalDescription = nil
	r.ProposedBy = nil
	r.ProposedAt = nil
}

// Sequence 命名计数器表 — 对应 sequences
// 申请流水号在持有该行行锁的事务内递增，保证严格递增且不复用
type Sequence struct {
	Name  string `gorm:"type:varchar(50);primaryKey" json:"name"`
	Value int64  `gorm:"not null;default:0"          json:"value"`
}

func (Sequence) TableName() string { return "sequences" }

// SequenceCodeRequest 编码申请流水号计数器名称
const SequenceCodeRequest = "code_request_number"
