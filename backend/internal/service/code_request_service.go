package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"valve-vault/backend/config"
	"valve-vault/backend/internal/dto"
	"valve-vault/backend/internal/model"
	"valve-vault/backend/internal/repository"
	pkgerrors "valve-vault/backend/pkg/errors"
	"valve-vault/backend/pkg/notify"
)

// ── 编码申请模块业务错误 ──

var (
	ErrRequestNotFound   = pkgerrors.New(pkgerrors.ErrNotFound, "编码申请不存在")
	ErrWrongState        = pkgerrors.New(pkgerrors.ErrConflict, "当前状态不允许该操作")
	ErrNotHolder         = pkgerrors.New(pkgerrors.ErrConflict, "只有认领人可以执行该操作")
	ErrInvalidCodeFormat = pkgerrors.New(pkgerrors.ErrValidation, "编码格式不正确：须为固定长度的可打印字符")
	ErrDuplicateCode     = pkgerrors.New(pkgerrors.ErrConflict, "编码已存在于有效物料中")
	ErrEmptyReason       = pkgerrors.New(pkgerrors.ErrValidation, "必须填写原因")
	ErrEmptyDescription  = pkgerrors.New(pkgerrors.ErrValidation, "描述不能为空")
	ErrInvalidWeight     = pkgerrors.New(pkgerrors.ErrValidation, "重量不能为负数")
	ErrPermissionDenied  = pkgerrors.New(pkgerrors.ErrForbidden, "无权限执行该操作")
)

// CodeRequestService 编码申请队列 + 认领锁 + 拟定编码
type CodeRequestService interface {
	Create(ctx context.Context, req *dto.CreateCodeRequestRequest, actor Actor) (*dto.CodeRequestResponse, error)
	GetByID(ctx context.Context, id string) (*dto.CodeRequestResponse, error)
	List(ctx context.Context, req *dto.CodeRequestListRequest, actor Actor) ([]dto.CodeRequestResponse, int64, error)
	Claim(ctx context.Context, id string, actor Actor) (*dto.CodeRequestResponse, error)
	Release(ctx context.Context, id string, actor Actor) (*dto.CodeRequestResponse, error)
	ForceRelease(ctx context.Context, id string, reason string, actor Actor) (*dto.CodeRequestResponse, error)
	ProposeCode(ctx context.Context, id string, req *dto.ProposeCodeRequest, actor Actor) (*dto.CodeRequestResponse, error)
	EditProposedCode(ctx context.Context, id string, req *dto.EditProposedCodeRequest, actor Actor) (*dto.CodeRequestResponse, error)
	Delete(ctx context.Context, id string, reason string, actor Actor) error
	ListAudit(ctx context.Context, id string) ([]dto.AuditRecordResponse, error)
	// ReleaseExpiredClaims 释放认领时间早于 now - claim_ttl 的 claimed 申请，返回释放数量
	ReleaseExpiredClaims(ctx context.Context, now time.Time) (int, error)
}

type codeRequestService struct {
	*requestWorkflow
	perms      PermissionResolver
	codeLength int
	claimTTL   time.Duration
}

// NewCodeRequestService 创建 CodeRequestService 实例
func NewCodeRequestService(
	cfg *config.WorkflowConfig,
	repo *repository.Repository,
	audit AuditLedger,
	perms PermissionResolver,
	notifier notify.Notifier,
	logger *zap.Logger,
) CodeRequestService {
	return &codeRequestService{
		requestWorkflow: &requestWorkflow{repo: repo, audit: audit, notifier: notifier, logger: logger},
		perms:           perms,
		codeLength:      cfg.CodeLength,
		claimTTL:        cfg.ClaimTTL,
	}
}

// ────────────────────── Create ──────────────────────

func (s *codeRequestService) Create(ctx context.Context, in *dto.CreateCodeRequestRequest, actor Actor) (*dto.CodeRequestResponse, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, ErrEmptyDescription
	}
	if in.Weight != nil && in.Weight.IsNegative() {
		return nil, ErrInvalidWeight
	}

	req := &model.CodeRequest{
		Description:    desc,
		ManufacturerID: in.ManufacturerID,
		MaterialType:   in.MaterialType,
		RequesterID:    actor.ID,
		RequesterName:  actor.Name,
		Status:         model.RequestStatusPending,
	}
	if in.Weight != nil {
		req.Weight.Decimal = *in.Weight
		req.Weight.Valid = true
	}
	req.CreatedBy = &actor.ID
	req.UpdatedBy = &actor.ID

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// 取号与插入在同一事务内，回滚时号码不落库
		n, err := tx.Sequence.Next(ctx, model.SequenceCodeRequest)
		if err != nil {
			return err
		}
		req.RequestNumber = n

		if err := tx.CodeRequest.Create(ctx, req); err != nil {
			return err
		}

		status := model.RequestStatusPending
		_, err = s.audit.Append(ctx, tx, actor, AuditEntry{
			SubjectType: model.SubjectCodeRequest,
			SubjectID:   req.RequestID,
			Action:      model.AuditCreation,
			Field:       "status",
			New:         &status,
			Metadata: map[string]string{
				"request_number": strconv.FormatInt(n, 10),
				"description":    desc,
			},
		})
		return err
	})
	if err != nil {
		s.logger.Error("创建编码申请失败", zap.String("actor", actor.ID), zap.Error(err))
		return nil, err
	}

	requestTransitionsTotal.WithLabelValues(model.AuditCreation).Inc()
	s.notifier.Publish(ctx, notify.Event{
		Topic:     notify.TopicCodeRequests,
		SubjectID: req.RequestID,
		Kind:      model.AuditCreation,
		At:        req.CreatedAt,
	})
	return toCodeRequestResponse(req), nil
}

// ────────────────────── Query ──────────────────────

func (s *codeRequestService) GetByID(ctx context.Context, id string) (*dto.CodeRequestResponse, error) {
	req, err := s.repo.CodeRequest.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		s.logger.Error("查询编码申请失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toCodeRequestResponse(req), nil
}

func (s *codeRequestService) List(ctx context.Context, in *dto.CodeRequestListRequest, actor Actor) ([]dto.CodeRequestResponse, int64, error) {
	filter := repository.CodeRequestFilter{
		Status:  in.Status,
		Keyword: strings.TrimSpace(in.Keyword),
	}
	if in.Mine {
		filter.RequesterID = actor.ID
	}
	if in.Claimed {
		filter.ClaimedBy = actor.ID
	}

	reqs, total, err := s.repo.CodeRequest.List(ctx, filter, in.GetOffset(), in.GetPageSize())
	if err != nil {
		s.logger.Error("列出编码申请失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.CodeRequestResponse, 0, len(reqs))
	for i := range reqs {
		result = append(result, *toCodeRequestResponse(&reqs[i]))
	}
	return result, total, nil
}

func (s *codeRequestService) ListAudit(ctx context.Context, id string) ([]dto.AuditRecordResponse, error) {
	// 已删除的申请仍可查看审计
	if _, err := s.repo.CodeRequest.GetByID(ctx, id); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询编码申请失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	recs, err := s.audit.ListBySubject(ctx, model.SubjectCodeRequest, id)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrRequestNotFound
	}
	return recs, nil
}

// ────────────────────── Claim / Release ──────────────────────

func (s *codeRequestService) Claim(ctx context.Context, id string, actor Actor) (*dto.CodeRequestResponse, error) {
	req, err := s.apply(ctx, id, actor, model.AuditClaim,
		func(_ *repository.Repository, req *model.CodeRequest, now time.Time) (AuditEntry, error) {
			req.ClaimedBy = &actor.ID
			req.ClaimedByName = optional(actor.Name)
			req.ClaimedAt = &now
			return AuditEntry{}, nil
		})
	if err != nil {
		return nil, err
	}
	return toCodeRequestResponse(req), nil
}

func (s *codeRequestService) Release(ctx context.Context, id string, actor Actor) (*dto.CodeRequestResponse, error) {
	req, err := s.apply(ctx, id, actor, model.AuditRelease,
		func(_ *repository.Repository, req *model.CodeRequest, _ time.Time) (AuditEntry, error) {
			if !req.IsHeldBy(actor.ID) {
				return AuditEntry{}, ErrNotHolder
			}
			meta := proposalMetadata(req)
			req.ClearClaim()
			req.ClearProposal()
			return AuditEntry{Metadata: meta}, nil
		})
	if err != nil {
		return nil, err
	}
	return toCodeRequestResponse(req), nil
}

func (s *codeRequestService) ForceRelease(ctx context.Context, id string, reason string, actor Actor) (*dto.CodeRequestResponse, error) {
	if !s.perms.Can(actor, ActionForceRelease) {
		return nil, ErrPermissionDenied
	}

	req, err := s.apply(ctx, id, actor, model.AuditForceRelease,
		func(_ *repository.Repository, req *model.CodeRequest, _ time.Time) (AuditEntry, error) {
			meta := proposalMetadata(req)
			meta["previous_holder"] = *req.ClaimedBy
			req.ClearClaim()
			req.ClearProposal()
			return AuditEntry{Metadata: meta, Reason: reason}, nil
		})
	if err != nil {
		return nil, err
	}
	return toCodeRequestResponse(req), nil
}

func (s *codeRequestService) ReleaseExpiredClaims(ctx context.Context, now time.Time) (int, error) {
	if s.claimTTL <= 0 {
		return 0, nil
	}
	cutoff := now.Add(-s.claimTTL)

	stale, err := s.repo.CodeRequest.ListClaimedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("查询过期认领失败", zap.Error(err))
		return 0, err
	}

	released := 0
	for i := range stale {
		_, err := s.apply(ctx, stale[i].RequestID, SystemActor, model.AuditClaimExpired,
			func(_ *repository.Repository, req *model.CodeRequest, _ time.Time) (AuditEntry, error) {
				// 加锁后复查：期间可能已被释放或重新认领
				if req.ClaimedAt == nil || !req.ClaimedAt.Before(cutoff) {
					return AuditEntry{}, ErrWrongState
				}
				meta := map[string]string{
					"previous_holder": *req.ClaimedBy,
					"claimed_at":      req.ClaimedAt.Format(time.RFC3339),
				}
				req.ClearClaim()
				return AuditEntry{Metadata: meta}, nil
			})
		if err != nil {
			if pkgerrors.Kind(err) != nil {
				continue
			}
			return released, err
		}
		released++
		expiredClaims.Inc()
	}

	if released > 0 {
		s.logger.Info("已释放过期认领", zap.Int("count", released), zap.Duration("ttl", s.claimTTL))
	}
	return released, nil
}

// ────────────────────── Proposal ──────────────────────

func (s *codeRequestService) ProposeCode(ctx context.Context, id string, in *dto.ProposeCodeRequest, actor Actor) (*dto.CodeRequestResponse, error) {
	code, err := NormalizeCode(in.Code, s.codeLength)
	if err != nil {
		return nil, err
	}

	req, err := s.apply(ctx, id, actor, model.AuditCodeProposed,
		func(_ *repository.Repository, req *model.CodeRequest, now time.Time) (AuditEntry, error) {
			if !req.IsHeldBy(actor.ID) {
				return AuditEntry{}, ErrNotHolder
			}
			req.ProposedCode = &code
			req.ProposedBy = &actor.ID
			req.ProposedAt = &now
			req.InternalDescription = nil
			if in.InternalDescription != nil {
				req.InternalDescription = optional(strings.TrimSpace(*in.InternalDescription))
			}
			return AuditEntry{Metadata: map[string]string{"code": code}}, nil
		})
	if err != nil {
		return nil, err
	}
	return toCodeRequestResponse(req), nil
}

// EditProposedCode 覆盖角色直接修改拟定编码，不重置认领与时间戳
func (s *codeRequestService) EditProposedCode(ctx context.Context, id string, in *dto.EditProposedCodeRequest, actor Actor) (*dto.CodeRequestResponse, error) {
	code, err := NormalizeCode(in.Code, s.codeLength)
	if err != nil {
		return nil, err
	}
	if !s.perms.Can(actor, ActionOverride) {
		return nil, ErrPermissionDenied
	}

	req, err := s.apply(ctx, id, actor, model.AuditCodeEdited,
		func(_ *repository.Repository, req *model.CodeRequest, _ time.Time) (AuditEntry, error) {
			previous := *req.ProposedCode
			req.ProposedCode = &code
			return AuditEntry{Field: "code", Previous: &previous, New: &code}, nil
		})
	if err != nil {
		return nil, err
	}
	return toCodeRequestResponse(req), nil
}

// ────────────────────── Delete ──────────────────────

func (s *codeRequestService) Delete(ctx context.Context, id string, reason string, actor Actor) error {
	if !s.perms.Can(actor, ActionDelete) {
		return ErrPermissionDenied
	}

	_, err := s.apply(ctx, id, actor, model.AuditDeletion,
		func(_ *repository.Repository, req *model.CodeRequest, now time.Time) (AuditEntry, error) {
			at := now.Format(time.RFC3339Nano)
			return AuditEntry{
				Field:    "deleted_at",
				New:      &at,
				Metadata: map[string]string{"status": req.Status},
				Reason:   reason,
			}, nil
		})
	return err
}

// ── 转换 ──

func proposalMetadata(req *model.CodeRequest) map[string]string {
	meta := map[string]string{}
	if req.ProposedCode != nil {
		meta["discarded_code"] = *req.ProposedCode
	}
	return meta
}

func toCodeRequestResponse(r *model.CodeRequest) *dto.CodeRequestResponse {
	resp := &dto.CodeRequestResponse{
		ID:             r.RequestID,
		Number:         r.RequestNumber,
		Description:    r.Description,
		ManufacturerID: r.ManufacturerID,
		MaterialType:   r.MaterialType,
		Status:         r.Status,
		Requester:      dto.ActorRef{ID: r.RequesterID, Name: r.RequesterName},
		CatalogItemID:  r.CatalogItemID,
		Version:        r.Version,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.Weight.Valid {
		w := r.Weight.Decimal
		resp.Weight = &w
	}
	if r.ClaimedBy != nil && r.ClaimedAt != nil {
		holder := dto.ActorRef{ID: *r.ClaimedBy}
		if r.ClaimedByName != nil {
			holder.Name = *r.ClaimedByName
		}
		resp.Claim = &dto.ClaimResponse{Holder: holder, ClaimedAt: *r.ClaimedAt}
	}
	if r.ProposedCode != nil {
		p := &dto.ProposalResponse{
			Code:                *r.ProposedCode,
			InternalDescription: r.InternalDescription,
		}
		if r.ProposedBy != nil {
			p.ProposedBy = *r.ProposedBy
		}
		if r.ProposedAt != nil {
			p.ProposedAt = *r.ProposedAt
		}
		resp.Proposal = p
	}
	switch {
	case r.ApprovedBy != nil && r.ApprovedAt != nil:
		resp.Resolution = &dto.ResolutionResponse{Outcome: model.RequestStatusApproved, ActorID: *r.ApprovedBy, At: *r.ApprovedAt}
	case r.RejectedBy != nil && r.RejectedAt != nil:
		resp.Resolution = &dto.ResolutionResponse{Outcome: model.RequestStatusRejected, ActorID: *r.RejectedBy, At: *r.RejectedAt, Reason: r.RejectReason}
	}
	return resp
}
