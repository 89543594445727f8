package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"valve-vault/backend/internal/model"
	pkgerrors "valve-vault/backend/pkg/errors"
)

// CodeRequestFilter 编码申请列表筛选条件
type CodeRequestFilter struct {
	Status      string
	RequesterID string
	ClaimedBy   string
	Keyword     string
}

// CodeRequestRepository 编码申请数据访问接口
type CodeRequestRepository interface {
	Create(ctx context.Context, req *model.CodeRequest) error
	GetByID(ctx context.Context, id string) (*model.CodeRequest, error)
	// GetByIDForUpdate 使用 SELECT ... FOR UPDATE 行级锁查询，必须在事务内调用
	GetByIDForUpdate(ctx context.Context, id string) (*model.CodeRequest, error)
	List(ctx context.Context, filter CodeRequestFilter, offset, limit int) ([]model.CodeRequest, int64, error)
	ListClaimedBefore(ctx context.Context, before time.Time) ([]model.CodeRequest, error)
	// Update 以 version 做条件更新，0 行受影响返回 ErrOptimisticLock
	Update(ctx context.Context, req *model.CodeRequest) error
	SoftDelete(ctx context.Context, req *model.CodeRequest, deletedBy string) error
}

type codeRequestRepo struct {
	db *gorm.DB
}

func NewCodeRequestRepo(db *gorm.DB) CodeRequestRepository {
	return &codeRequestRepo{db: db}
}

func (r *codeRequestRepo) Create(ctx context.Context, req *model.CodeRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *codeRequestRepo) GetByID(ctx context.Context, id string) (*model.CodeRequest, error) {
	var req model.CodeRequest
	err := r.db.WithContext(ctx).
		Where("request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *codeRequestRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.CodeRequest, error) {
	var req model.CodeRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *codeRequestRepo) List(ctx context.Context, filter CodeRequestFilter, offset, limit int) ([]model.CodeRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.CodeRequest{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.RequesterID != "" {
		query = query.Where("requester_id = ?", filter.RequesterID)
	}
	if filter.ClaimedBy != "" {
		query = query.Where("claimed_by = ?", filter.ClaimedBy)
	}
	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		query = query.Where("description LIKE ? OR proposed_code LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reqs []model.CodeRequest
	err := query.
		Order("request_number DESC").
		Offset(offset).
		Limit(limit).
		Find(&reqs).Error
	if err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

func (r *codeRequestRepo) ListClaimedBefore(ctx context.Context, before time.Time) ([]model.CodeRequest, error) {
	var reqs []model.CodeRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND claimed_at < ?", model.RequestStatusClaimed, before).
		Order("claimed_at ASC").
		Find(&reqs).Error
	return reqs, err
}

func (r *codeRequestRepo) Update(ctx context.Context, req *model.CodeRequest) error {
	oldVersion := req.Version
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.CodeRequest{}).
		Where("request_id = ? AND version = ?", req.RequestID, oldVersion).
		Updates(map[string]interface{}{
			"status":               req.Status,
			"claimed_by":           req.ClaimedBy,
			"claimed_by_name":      req.ClaimedByName,
			"claimed_at":           req.ClaimedAt,
			"proposed_code":        req.ProposedCode,
			"internal_description": req.InternalDescription,
			"proposed_by":          req.ProposedBy,
			"proposed_at":          req.ProposedAt,
			"approved_by":          req.ApprovedBy,
			"approved_at":          req.ApprovedAt,
			"rejected_by":          req.RejectedBy,
			"rejected_at":          req.RejectedAt,
			"reject_reason":        req.RejectReason,
			"catalog_item_id":      req.CatalogItemID,
			"updated_by":           req.UpdatedBy,
			"updated_at":           now,
			"version":              oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	req.Version = oldVersion + 1
	req.UpdatedAt = now
	return nil
}

func (r *codeRequestRepo) SoftDelete(ctx context.Context, req *model.CodeRequest, deletedBy string) error {
	oldVersion := req.Version
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.CodeRequest{}).
		Where("request_id = ? AND version = ?", req.RequestID, oldVersion).
		Updates(map[string]interface{}{
			"deleted_at": now,
			"deleted_by": deletedBy,
			"updated_at": now,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	req.Version = oldVersion + 1
	return nil
}
