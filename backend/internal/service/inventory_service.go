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

// ── 盘点模块业务错误 ──

var (
	ErrCountNotFound      = pkgerrors.New(pkgerrors.ErrNotFound, "盘点记录不存在")
	ErrAddressNotFound    = pkgerrors.New(pkgerrors.ErrNotFound, "库位不存在")
	ErrInvalidPassNumber  = pkgerrors.New(pkgerrors.ErrValidation, "盘点轮次超出允许范围")
	ErrPassOutOfOrder     = pkgerrors.New(pkgerrors.ErrConflict, "上一轮盘点尚未登记")
	ErrDuplicateCountPass = pkgerrors.New(pkgerrors.ErrConflict, "该库位本轮盘点已登记，请走调整流程")
	ErrNegativeQuantity   = pkgerrors.New(pkgerrors.ErrValidation, "数量不能为负数")
)

// InventoryService 盘点登记与特权调整
type InventoryService interface {
	RecordCount(ctx context.Context, req *dto.RecordCountRequest, actor Actor) (*dto.InventoryCountResponse, error)
	ListByAddress(ctx context.Context, addressID string) ([]dto.InventoryCountResponse, error)
	// AdjustCount 覆盖数量并追加审计；相同调整重复提交会产生多条审计
	AdjustCount(ctx context.Context, countID string, req *dto.AdjustCountRequest, actor Actor) (*dto.AdjustCountResponse, error)
	ListAudit(ctx context.Context, countID string) ([]dto.AuditRecordResponse, error)
}

type inventoryService struct {
	repo      *repository.Repository
	audit     AuditLedger
	perms     PermissionResolver
	notifier  notify.Notifier
	maxPasses int
	logger    *zap.Logger
}

// NewInventoryService 创建 InventoryService 实例
func NewInventoryService(
	cfg *config.WorkflowConfig,
	repo *repository.Repository,
	audit AuditLedger,
	perms PermissionResolver,
	notifier notify.Notifier,
	logger *zap.Logger,
) InventoryService {
	return &inventoryService{
		repo:      repo,
		audit:     audit,
		perms:     perms,
		notifier:  notifier,
		maxPasses: cfg.MaxCountPasses,
		logger:    logger,
	}
}

// ────────────────────── RecordCount ──────────────────────

func (s *inventoryService) RecordCount(ctx context.Context, in *dto.RecordCountRequest, actor Actor) (*dto.InventoryCountResponse, error) {
	if in.PassNumber < 1 || in.PassNumber > s.maxPasses {
		return nil, ErrInvalidPassNumber
	}
	if in.Quantity.IsNegative() {
		return nil, ErrNegativeQuantity
	}

	count := &model.InventoryCount{
		AddressID:     in.AddressID,
		PassNumber:    in.PassNumber,
		Quantity:      in.Quantity,
		CountedBy:     actor.ID,
		CountedByName: actor.Name,
		Note:          strings.TrimSpace(in.Note),
	}
	count.CreatedBy = &actor.ID
	count.UpdatedBy = &actor.ID

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.ItemAddress.GetByID(ctx, in.AddressID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAddressNotFound
			}
			return err
		}

		existing, err := tx.InventoryCount.ListByAddress(ctx, in.AddressID)
		if err != nil {
			return err
		}
		passes := make(map[int]bool, len(existing))
		for _, c := range existing {
			passes[c.PassNumber] = true
		}
		if passes[in.PassNumber] {
			return ErrDuplicateCountPass
		}
		if in.PassNumber > 1 && !passes[in.PassNumber-1] {
			return ErrPassOutOfOrder
		}

		if err := tx.InventoryCount.Create(ctx, count); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateCountPass
			}
			return err
		}

		qty := count.Quantity.String()
		_, err = s.audit.Append(ctx, tx, actor, AuditEntry{
			SubjectType: model.SubjectInventoryCount,
			SubjectID:   count.CountID,
			Action:      model.AuditCountRecorded,
			Field:       "quantity",
			New:         &qty,
			Metadata: map[string]string{
				"address_id":  count.AddressID,
				"pass_number": strconv.Itoa(count.PassNumber),
			},
		})
		return err
	})
	if err != nil {
		if pkgerrors.Kind(err) == nil {
			s.logger.Error("登记盘点失败", zap.String("address_id", in.AddressID), zap.Error(err))
		}
		return nil, err
	}

	s.notifier.Publish(ctx, notify.Event{
		Topic:     notify.TopicInventoryCounts,
		SubjectID: count.CountID,
		Kind:      model.AuditCountRecorded,
		At:        count.CreatedAt,
	})
	resp := toCountResponse(count)
	return &resp, nil
}

func (s *inventoryService) ListByAddress(ctx context.Context, addressID string) ([]dto.InventoryCountResponse, error) {
	counts, err := s.repo.InventoryCount.ListByAddress(ctx, addressID)
	if err != nil {
		s.logger.Error("列出盘点记录失败", zap.String("address_id", addressID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.InventoryCountResponse, 0, len(counts))
	for i := range counts {
		result = append(result, toCountResponse(&counts[i]))
	}
	return result, nil
}

// ────────────────────── AdjustCount ──────────────────────

func (s *inventoryService) AdjustCount(ctx context.Context, countID string, in *dto.AdjustCountRequest, actor Actor) (*dto.AdjustCountResponse, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, ErrEmptyReason
	}
	if !s.perms.Can(actor, ActionAdjust) {
		return nil, ErrPermissionDenied
	}
	if in.Quantity.IsNegative() {
		return nil, ErrNegativeQuantity
	}

	var (
		count *model.InventoryCount
		rec   *model.AuditRecord
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		count, err = tx.InventoryCount.GetByIDForUpdate(ctx, countID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCountNotFound
			}
			return err
		}

		previous := count.Quantity.String()
		count.Quantity = in.Quantity
		count.UpdatedBy = &actor.ID
		if err := tx.InventoryCount.UpdateQuantity(ctx, count); err != nil {
			return err
		}

		next := count.Quantity.String()
		rec, err = s.audit.Append(ctx, tx, actor, AuditEntry{
			SubjectType: model.SubjectInventoryCount,
			SubjectID:   count.CountID,
			Action:      model.AuditQuantityAdjusted,
			Field:       "quantity",
			Previous:    &previous,
			New:         &next,
			Reason:      reason,
			Metadata: map[string]string{
				"address_id":  count.AddressID,
				"pass_number": strconv.Itoa(count.PassNumber),
			},
		})
		return err
	})
	if err != nil {
		if pkgerrors.Kind(err) == nil {
			s.logger.Error("调整盘点数量失败", zap.String("count_id", countID), zap.Error(err))
		}
		return nil, err
	}

	inventoryAdjustments.Inc()
	s.notifier.Publish(ctx, notify.Event{
		Topic:     notify.TopicInventoryCounts,
		SubjectID: count.CountID,
		Kind:      model.AuditQuantityAdjusted,
		At:        time.Now(),
	})
	return &dto.AdjustCountResponse{
		Count: toCountResponse(count),
		Audit: toAuditResponse(rec),
	}, nil
}

func (s *inventoryService) ListAudit(ctx context.Context, countID string) ([]dto.AuditRecordResponse, error) {
	if _, err := s.repo.InventoryCount.GetByID(ctx, countID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCountNotFound
		}
		s.logger.Error("查询盘点记录失败", zap.String("count_id", countID), zap.Error(err))
		return nil, err
	}
	return s.audit.ListBySubject(ctx, model.SubjectInventoryCount, countID)
}

func toCountResponse(c *model.InventoryCount) dto.InventoryCountResponse {
	return dto.InventoryCountResponse{
		ID:         c.CountID,
		AddressID:  c.AddressID,
		PassNumber: c.PassNumber,
		Quantity:   c.Quantity,
		CountedBy:  dto.ActorRef{ID: c.CountedBy, Name: c.CountedByName},
		Note:       c.Note,
		Version:    c.Version,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}
