package dto

import "time"

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// ── 通用片段 ──

// ActorRef 操作人引用
type ActorRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// AuditRecordResponse 审计记录
type AuditRecordResponse struct {
	ID            int64             `json:"id"`
	SubjectType   string            `json:"subject_type"`
	SubjectID     string            `json:"subject_id"`
	Action        string            `json:"action"`
	Field         *string           `json:"field,omitempty"`
	PreviousValue *string           `json:"previous_value,omitempty"`
	NewValue      *string           `json:"new_value,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Actor         ActorRef          `json:"actor"`
	Reason        *string           `json:"reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}
