package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"valve-vault/backend/internal/dto"
	"valve-vault/backend/internal/model"
	"valve-vault/backend/internal/repository"
)

// AuditEntry 一次状态变更的描述
type AuditEntry struct {
	SubjectType string
	SubjectID   string
	Action      string
	Field       string
	Previous    *string
	New         *string
	Metadata    map[string]string
	Reason      string
}

// AuditLedger 审计日志：只追加，不修改
type AuditLedger interface {
	// Append 在 repo 所绑定的连接（通常是事务）上追加一条记录
	Append(ctx context.Context, repo *repository.Repository, actor Actor, e AuditEntry) (*model.AuditRecord, error)
	ListBySubject(ctx context.Context, subjectType, subjectID string) ([]dto.AuditRecordResponse, error)
}

type auditLedger struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAuditLedger 创建 AuditLedger 实例
func NewAuditLedger(repo *repository.Repository, logger *zap.Logger) AuditLedger {
	return &auditLedger{repo: repo, logger: logger}
}

func (l *auditLedger) Append(ctx context.Context, repo *repository.Repository, actor Actor, e AuditEntry) (*model.AuditRecord, error) {
	rec := &model.AuditRecord{
		SubjectType:   e.SubjectType,
		SubjectID:     e.SubjectID,
		Action:        e.Action,
		Field:         optional(e.Field),
		PreviousValue: e.Previous,
		NewValue:      e.New,
		Metadata:      model.StringMap(e.Metadata),
		ActorID:       actor.ID,
		ActorLabel:    actor.Label(),
		Reason:        optional(strings.TrimSpace(e.Reason)),
		CreatedAt:     time.Now(),
	}
	if err := repo.Audit.Append(ctx, rec); err != nil {
		l.logger.Error("写入审计记录失败",
			zap.String("subject", e.SubjectType+":"+e.SubjectID),
			zap.String("action", e.Action),
			zap.Error(err),
		)
		return nil, err
	}
	return rec, nil
}

func (l *auditLedger) ListBySubject(ctx context.Context, subjectType, subjectID string) ([]dto.AuditRecordResponse, error) {
	recs, err := l.repo.Audit.ListBySubject(ctx, subjectType, subjectID)
	if err != nil {
		l.logger.Error("查询审计记录失败", zap.String("subject_id", subjectID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.AuditRecordResponse, 0, len(recs))
	for i := range recs {
		result = append(result, toAuditResponse(&recs[i]))
	}
	return result, nil
}

func toAuditResponse(r *model.AuditRecord) dto.AuditRecordResponse {
	return dto.AuditRecordResponse{
		ID:            r.AuditID,
		SubjectType:   r.SubjectType,
		SubjectID:     r.SubjectID,
		Action:        r.Action,
		Field:         r.Field,
		PreviousValue: r.PreviousValue,
		NewValue:      r.NewValue,
		Metadata:      r.Metadata,
		Actor:         dto.ActorRef{ID: r.ActorID, Name: r.ActorLabel},
		Reason:        r.Reason,
		CreatedAt:     r.CreatedAt,
	}
}

// optional 空字符串视为 NULL
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
