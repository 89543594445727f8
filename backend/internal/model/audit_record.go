package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// 审计主体类型
const (
	SubjectCodeRequest    = "code_request"
	SubjectCatalogItem    = "catalog_item"
	SubjectInventoryCount = "inventory_count"
)

// 审计动作
const (
	AuditCreation         = "creation"
	AuditClaim            = "claim"
	AuditRelease          = "release"
	AuditForceRelease     = "force-release"
	AuditClaimExpired     = "claim-expired"
	AuditCodeProposed     = "code-proposed"
	AuditCodeEdited       = "code-edited"
	AuditApproval         = "approval"
	AuditRejection        = "rejection"
	AuditDeletion         = "deletion"
	AuditAddressed        = "addressed"
	AuditCountRecorded    = "count-recorded"
	AuditQuantityAdjusted = "quantity-adjusted"
)

// ErrAuditImmutable 审计记录只允许追加
var ErrAuditImmutable = errors.New("审计记录不可修改或删除")

// AuditRecord 审计日志表 — 对应 audit_records（纯追加）
// 排序：created_at 升序，同一时刻按 audit_id（插入顺序）
type AuditRecord struct {
	AuditID       int64     `gorm:"primaryKey;autoIncrement"                                   json:"audit_id"`
	SubjectType   string    `gorm:"type:varchar(30);not null;index:idx_audit_subject,priority:1" json:"subject_type"`
	SubjectID     string    `gorm:"type:varchar(64);not null;index:idx_audit_subject,priority:2" json:"subject_id"`
	Action        string    `gorm:"type:varchar(30);not null;index"                            json:"action"`
	Field         *string   `gorm:"type:varchar(50)"                                           json:"field,omitempty"`
	PreviousValue *string   `gorm:"type:text"                                                  json:"previous_value,omitempty"`
	NewValue      *string   `gorm:"type:text"                                                  json:"new_value,omitempty"`
	Metadata      StringMap `gorm:"type:jsonb"                                                 json:"metadata,omitempty"`
	ActorID       string    `gorm:"type:varchar(64);not null"                                  json:"actor_id"`
	ActorLabel    string    `gorm:"type:varchar(100)"                                          json:"actor_label"`
	Reason        *string   `gorm:"type:varchar(500)"                                          json:"reason,omitempty"`
	CreatedAt     time.Time `gorm:"not null;index"                                             json:"created_at"`
}

// TableName 指定表名
func (AuditRecord) TableName() string { return "audit_records" }

func (AuditRecord) BeforeUpdate(_ *gorm.DB) error { return ErrAuditImmutable }

func (AuditRecord) BeforeDelete(_ *gorm.DB) error { return ErrAuditImmutable }
