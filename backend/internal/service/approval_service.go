package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"valve-vault/backend/internal/dto"
	"valve-vault/backend/internal/model"
	"valve-vault/backend/internal/repository"
	"valve-vault/backend/pkg/notify"
)

// ApprovalService 审批：通过时写入物料目录，驳回时结案
type ApprovalService interface {
	Approve(ctx context.Context, id string, actor Actor) (*dto.CodeRequestResponse, error)
	Reject(ctx context.Context, id string, reason string, actor Actor) (*dto.CodeRequestResponse, error)
}

type approvalService struct {
	*requestWorkflow
	perms PermissionResolver
}

// NewApprovalService 创建 ApprovalService 实例
func NewApprovalService(
	repo *repository.Repository,
	audit AuditLedger,
	perms PermissionResolver,
	notifier notify.Notifier,
	logger *zap.Logger,
) ApprovalService {
	return &approvalService{
		requestWorkflow: &requestWorkflow{repo: repo, audit: audit, notifier: notifier, logger: logger},
		perms:           perms,
	}
}

// ────────────────────── Approve ──────────────────────

// Approve 申请状态迁移与物料写入在同一事务内提交，任一步失败整体回滚
func (s *approvalService) Approve(ctx context.Context, id string, actor Actor) (*dto.CodeRequestResponse, error) {
	if !s.perms.Can(actor, ActionApprove) {
		return nil, ErrPermissionDenied
	}

	var itemID string
	req, err := s.apply(ctx, id, actor, model.AuditApproval,
		func(tx *repository.Repository, req *model.CodeRequest, now time.Time) (AuditEntry, error) {
			code := *req.ProposedCode

			// 编码唯一性只在审批时把关
			exists, err := tx.CatalogItem.ExistsActiveCode(ctx, code)
			if err != nil {
				return AuditEntry{}, err
			}
			if exists {
				duplicateCodeRejections.Inc()
				return AuditEntry{}, ErrDuplicateCode
			}

			desc := req.Description
			if req.InternalDescription != nil && *req.InternalDescription != "" {
				desc = *req.InternalDescription
			}
			item := &model.CatalogItem{
				Code:            code,
				Description:     desc,
				ManufacturerID:  req.ManufacturerID,
				MaterialType:    req.MaterialType,
				Weight:          req.Weight,
				Active:          true,
				SourceRequestID: &req.RequestID,
			}
			item.CreatedBy = &actor.ID
			item.UpdatedBy = &actor.ID
			if err := tx.CatalogItem.Create(ctx, item); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					duplicateCodeRejections.Inc()
					return AuditEntry{}, ErrDuplicateCode
				}
				return AuditEntry{}, err
			}
			itemID = item.ItemID

			req.ClearClaim()
			req.ApprovedBy = &actor.ID
			req.ApprovedAt = &now
			req.CatalogItemID = &item.ItemID

			return AuditEntry{Metadata: map[string]string{
				"code":            code,
				"catalog_item_id": item.ItemID,
			}}, nil
		})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(ctx, notify.Event{
		Topic:     notify.TopicCatalogItems,
		SubjectID: itemID,
		Kind:      model.AuditCreation,
		At:        time.Now(),
	})
	return toCodeRequestResponse(req), nil
}

// ────────────────────── Reject ──────────────────────

func (s *approvalService) Reject(ctx context.Context, id string, reason string, actor Actor) (*dto.CodeRequestResponse, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrEmptyReason
	}
	if !s.perms.Can(actor, ActionReject) {
		return nil, ErrPermissionDenied
	}

	req, err := s.apply(ctx, id, actor, model.AuditRejection,
		func(_ *repository.Repository, req *model.CodeRequest, now time.Time) (AuditEntry, error) {
			meta := proposalMetadata(req)
			req.ClearClaim()
			req.ClearProposal()
			req.RejectedBy = &actor.ID
			req.RejectedAt = &now
			req.RejectReason = reason
			return AuditEntry{Metadata: meta, Reason: reason}, nil
		})
	if err != nil {
		return nil, err
	}
	return toCodeRequestResponse(req), nil
}
