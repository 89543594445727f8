package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── 编码申请模块 DTO ──

// CreateCodeRequestRequest 提交编码申请
type CreateCodeRequestRequest struct {
	Description    string           `json:"description"     binding:"required,max=500"`
	ManufacturerID *string          `json:"manufacturer_id" binding:"omitempty,max=64"`
	MaterialType   *string          `json:"material_type"   binding:"omitempty,max=50"`
	Weight         *decimal.Decimal `json:"weight"`
}

// CodeRequestListRequest 编码申请列表查询参数
type CodeRequestListRequest struct {
	PaginationRequest
	Status  string `form:"status"  binding:"omitempty,oneof=pending claimed code_proposed approved rejected"`
	Mine    bool   `form:"mine"`    // 仅看我提交的
	Claimed bool   `form:"claimed"` // 仅看我认领的
	Keyword string `form:"keyword" binding:"omitempty,max=100"`
}

// ProposeCodeRequest 提交拟定编码
// 编码格式由业务层校验，以便返回统一的格式错误
type ProposeCodeRequest struct {
	Code                string  `json:"code"`
	InternalDescription *string `json:"internal_description" binding:"omitempty,max=500"`
}

// EditProposedCodeRequest 覆盖修改拟定编码
type EditProposedCodeRequest struct {
	Code string `json:"code"`
}

// ReasonRequest 驳回 / 强制释放 / 删除 的原因
type ReasonRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ClaimResponse 认领信息
type ClaimResponse struct {
	Holder    ActorRef  `json:"holder"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// ProposalResponse 拟定编码信息
type ProposalResponse struct {
	Code                string    `json:"code"`
	InternalDescription *string   `json:"internal_description,omitempty"`
	ProposedBy          string    `json:"proposed_by"`
	ProposedAt          time.Time `json:"proposed_at"`
}

// ResolutionResponse 结案信息
type ResolutionResponse struct {
	Outcome string    `json:"outcome"` // approved | rejected
	ActorID string    `json:"actor_id"`
	At      time.Time `json:"at"`
	Reason  string    `json:"reason,omitempty"`
}

// CodeRequestResponse 编码申请响应
type CodeRequestResponse struct {
	ID             string              `json:"id"`
	Number         int64               `json:"number"`
	Description    string              `json:"description"`
	ManufacturerID *string             `json:"manufacturer_id,omitempty"`
	MaterialType   *string             `json:"material_type,omitempty"`
	Weight         *decimal.Decimal    `json:"weight,omitempty"`
	Status         string              `json:"status"`
	Requester      ActorRef            `json:"requester"`
	Claim          *ClaimResponse      `json:"claim,omitempty"`
	Proposal       *ProposalResponse   `json:"proposal,omitempty"`
	Resolution     *ResolutionResponse `json:"resolution,omitempty"`
	CatalogItemID  *string             `json:"catalog_item_id,omitempty"`
	Version        int                 `json:"version"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}
