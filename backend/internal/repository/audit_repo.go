package repository

import (
	"context"

	"gorm.io/gorm"

	"valve-vault/backend/internal/model"
)

// AuditRepository 审计日志数据访问接口
// 只提供追加与查询，不提供修改与删除
type AuditRepository interface {
	Append(ctx context.Context, rec *model.AuditRecord) error
	ListBySubject(ctx context.Context, subjectType, subjectID string) ([]model.AuditRecord, error)
	// ListBySubjects 批量查询，actions 为空时不按动作过滤
	ListBySubjects(ctx context.Context, subjectType string, subjectIDs []string, actions ...string) ([]model.AuditRecord, error)
}

type auditRepo struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Append(ctx context.Context, rec *model.AuditRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *auditRepo) ListBySubject(ctx context.Context, subjectType, subjectID string) ([]model.AuditRecord, error) {
	var recs []model.AuditRecord
	err := r.db.WithContext(ctx).
		Where("subject_type = ? AND subject_id = ?", subjectType, subjectID).
		Order("created_at ASC, audit_id ASC").
		Find(&recs).Error
	return recs, err
}

func (r *auditRepo) ListBySubjects(ctx context.Context, subjectType string, subjectIDs []string, actions ...string) ([]model.AuditRecord, error) {
	if len(subjectIDs) == 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx).
		Where("subject_type = ? AND subject_id IN ?", subjectType, subjectIDs)
	if len(actions) > 0 {
		query = query.Where("action IN ?", actions)
	}

	var recs []model.AuditRecord
	err := query.Order("created_at ASC, audit_id ASC").Find(&recs).Error
	return recs, err
}
