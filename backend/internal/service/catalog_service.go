package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"valve-vault/backend/config"
	"valve-vault/backend/internal/dto"
	"valve-vault/backend/internal/model"
	"valve-vault/backend/internal/repository"
	pkgerrors "valve-vault/backend/pkg/errors"
	"valve-vault/backend/pkg/notify"
)

// ── 物料目录模块业务错误 ──

var (
	ErrItemNotFound          = pkgerrors.New(pkgerrors.ErrNotFound, "物料不存在")
	ErrAddressItemMismatch   = pkgerrors.New(pkgerrors.ErrValidation, "库位不属于该物料")
	ErrInvalidMovementAmount = pkgerrors.New(pkgerrors.ErrValidation, "移动数量必须大于 0")
)

// CatalogService 物料目录：直接建档、库位登记、库存移动
type CatalogService interface {
	Create(ctx context.Context, req *dto.CreateCatalogItemRequest, actor Actor) (*dto.CatalogItemResponse, error)
	GetByID(ctx context.Context, id string) (*dto.CatalogItemResponse, error)
	AddAddress(ctx context.Context, itemID string, req *dto.CreateAddressRequest, actor Actor) (*dto.AddressResponse, error)
	ListAddresses(ctx context.Context, itemID string) ([]dto.AddressResponse, error)
	RecordMovement(ctx context.Context, itemID string, req *dto.CreateMovementRequest, actor Actor) (*dto.MovementResponse, error)
}

type catalogService struct {
	repo       *repository.Repository
	audit      AuditLedger
	perms      PermissionResolver
	notifier   notify.Notifier
	codeLength int
	logger     *zap.Logger
}

// NewCatalogService 创建 CatalogService 实例
func NewCatalogService(
	cfg *config.WorkflowConfig,
	repo *repository.Repository,
	audit AuditLedger,
	perms PermissionResolver,
	notifier notify.Notifier,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		repo:       repo,
		audit:      audit,
		perms:      perms,
		notifier:   notifier,
		codeLength: cfg.CodeLength,
		logger:     logger,
	}
}

// ────────────────────── Create ──────────────────────

// Create 绕过申请流程直接建档（历史物料导入等场景）
func (s *catalogService) Create(ctx context.Context, in *dto.CreateCatalogItemRequest, actor Actor) (*dto.CatalogItemResponse, error) {
	code, err := NormalizeCode(in.Code, s.codeLength)
	if err != nil {
		return nil, err
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, ErrEmptyDescription
	}
	if in.Weight != nil && in.Weight.IsNegative() {
		return nil, ErrInvalidWeight
	}
	if !s.perms.Can(actor, ActionCatalog) {
		return nil, ErrPermissionDenied
	}

	item := &model.CatalogItem{
		Code:           code,
		Description:    desc,
		ManufacturerID: in.ManufacturerID,
		MaterialType:   in.MaterialType,
		Active:         true,
	}
	if in.Weight != nil {
		item.Weight.Decimal = *in.Weight
		item.Weight.Valid = true
	}
	item.CreatedBy = &actor.ID
	item.UpdatedBy = &actor.ID

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		exists, err := tx.CatalogItem.ExistsActiveCode(ctx, code)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateCode
		}
		if err := tx.CatalogItem.Create(ctx, item); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateCode
			}
			return err
		}
		_, err = s.audit.Append(ctx, tx, actor, AuditEntry{
			SubjectType: model.SubjectCatalogItem,
			SubjectID:   item.ItemID,
			Action:      model.AuditCreation,
			Field:       "code",
			New:         &code,
			Metadata:    map[string]string{"description": desc},
		})
		return err
	})
	if err != nil {
		if pkgerrors.Kind(err) == nil {
			s.logger.Error("创建物料失败", zap.String("code", code), zap.Error(err))
		}
		return nil, err
	}

	s.notifier.Publish(ctx, notify.Event{
		Topic:     notify.TopicCatalogItems,
		SubjectID: item.ItemID,
		Kind:      model.AuditCreation,
		At:        item.CreatedAt,
	})
	return toCatalogItemResponse(item), nil
}

func (s *catalogService) GetByID(ctx context.Context, id string) (*dto.CatalogItemResponse, error) {
	item, err := s.getItem(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return toCatalogItemResponse(item), nil
}

// ────────────────────── Addresses ──────────────────────

func (s *catalogService) AddAddress(ctx context.Context, itemID string, in *dto.CreateAddressRequest, actor Actor) (*dto.AddressResponse, error) {
	addr := &model.ItemAddress{
		ItemID:    itemID,
		Warehouse: strings.TrimSpace(in.Warehouse),
		Zone:      strings.TrimSpace(in.Zone),
		Aisle:     strings.TrimSpace(in.Aisle),
		Shelf:     strings.TrimSpace(in.Shelf),
		Position:  strings.TrimSpace(in.Position),
		Note:      strings.TrimSpace(in.Note),
	}
	addr.CreatedBy = &actor.ID
	addr.UpdatedBy = &actor.ID

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := s.getItem(ctx, tx, itemID); err != nil {
			return err
		}
		if err := tx.ItemAddress.Create(ctx, addr); err != nil {
			return err
		}
		label := addr.Label()
		_, err := s.audit.Append(ctx, tx, actor, AuditEntry{
			SubjectType: model.SubjectCatalogItem,
			SubjectID:   itemID,
			Action:      model.AuditAddressed,
			Field:       "address",
			New:         &label,
			Metadata:    map[string]string{"address_id": addr.AddressID},
		})
		return err
	})
	if err != nil {
		if pkgerrors.Kind(err) == nil {
			s.logger.Error("登记库位失败", zap.String("item_id", itemID), zap.Error(err))
		}
		return nil, err
	}

	s.notifier.Publish(ctx, notify.Event{
		Topic:     notify.TopicCatalogItems,
		SubjectID: itemID,
		Kind:      model.AuditAddressed,
		At:        addr.CreatedAt,
	})
	resp := toAddressResponse(addr)
	return &resp, nil
}

func (s *catalogService) ListAddresses(ctx context.Context, itemID string) ([]dto.AddressResponse, error) {
	if _, err := s.getItem(ctx, s.repo, itemID); err != nil {
		return nil, err
	}
	addrs, err := s.repo.ItemAddress.ListByItem(ctx, itemID)
	if err != nil {
		s.logger.Error("列出库位失败", zap.String("item_id", itemID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.AddressResponse, 0, len(addrs))
	for i := range addrs {
		result = append(result, toAddressResponse(&addrs[i]))
	}
	return result, nil
}

// ────────────────────── Movements ──────────────────────

func (s *catalogService) RecordMovement(ctx context.Context, itemID string, in *dto.CreateMovementRequest, actor Actor) (*dto.MovementResponse, error) {
	if !in.Quantity.IsPositive() {
		return nil, ErrInvalidMovementAmount
	}

	m := &model.StockMovement{
		ItemID:    itemID,
		AddressID: in.AddressID,
		Type:      in.Type,
		Quantity:  in.Quantity,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Note:      strings.TrimSpace(in.Note),
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := s.getItem(ctx, tx, itemID); err != nil {
			return err
		}
		if in.AddressID != nil {
			addr, err := tx.ItemAddress.GetByID(ctx, *in.AddressID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrAddressNotFound
				}
				return err
			}
			if addr.ItemID != itemID {
				return ErrAddressItemMismatch
			}
		}
		return tx.StockMovement.Create(ctx, m)
	})
	if err != nil {
		if pkgerrors.Kind(err) == nil {
			s.logger.Error("登记库存移动失败", zap.String("item_id", itemID), zap.Error(err))
		}
		return nil, err
	}

	s.notifier.Publish(ctx, notify.Event{
		Topic:     notify.TopicCatalogItems,
		SubjectID: itemID,
		Kind:      "stock-movement",
		At:        m.CreatedAt,
	})
	return &dto.MovementResponse{
		ID:        m.MovementID,
		ItemID:    m.ItemID,
		AddressID: m.AddressID,
		Type:      m.Type,
		Quantity:  m.Quantity,
		Actor:     dto.ActorRef{ID: m.ActorID, Name: m.ActorName},
		Note:      m.Note,
		CreatedAt: m.CreatedAt,
	}, nil
}

// ── 辅助 ──

func (s *catalogService) getItem(ctx context.Context, repo *repository.Repository, id string) (*model.CatalogItem, error) {
	item, err := repo.CatalogItem.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		s.logger.Error("查询物料失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return item, nil
}

func toCatalogItemResponse(i *model.CatalogItem) *dto.CatalogItemResponse {
	resp := &dto.CatalogItemResponse{
		ID:              i.ItemID,
		Code:            i.Code,
		Description:     i.Description,
		ManufacturerID:  i.ManufacturerID,
		MaterialType:    i.MaterialType,
		Active:          i.Active,
		SourceRequestID: i.SourceRequestID,
		CreatedAt:       i.CreatedAt,
	}
	if i.Weight.Valid {
		w := i.Weight.Decimal
		resp.Weight = &w
	}
	return resp
}

func toAddressResponse(a *model.ItemAddress) dto.AddressResponse {
	return dto.AddressResponse{
		ID:        a.AddressID,
		ItemID:    a.ItemID,
		Label:     a.Label(),
		Warehouse: a.Warehouse,
		Zone:      a.Zone,
		Aisle:     a.Aisle,
		Shelf:     a.Shelf,
		Position:  a.Position,
		Note:      a.Note,
		CreatedAt: a.CreatedAt,
	}
}
