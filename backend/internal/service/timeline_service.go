package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"valve-vault/backend/internal/dto"
	"valve-vault/backend/internal/model"
	"valve-vault/backend/internal/repository"
)

// 时间线事件来源
const (
	sourceStockMovement = "stock_movement"
	kindStockMovement   = "stock-movement"
)

// TimelineService 聚合一个物料从申请到盘点的全部事件
type TimelineService interface {
	GetTimeline(ctx context.Context, itemID string) (*dto.TimelineResponse, error)
}

type timelineService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTimelineService 创建 TimelineService 实例
func NewTimelineService(repo *repository.Repository, logger *zap.Logger) TimelineService {
	return &timelineService{repo: repo, logger: logger}
}

// GetTimeline 按时间升序返回事件；同一时刻保持来源的收集顺序
//
// 所有事件的时间均来自应用时钟（审计记录与库存流水）
// 收集顺序：编码申请审计 → 物料建档与库位登记 → 盘点与调整 → 库存移动
func (s *timelineService) GetTimeline(ctx context.Context, itemID string) (*dto.TimelineResponse, error) {
	item, err := s.repo.CatalogItem.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		s.logger.Error("查询物料失败", zap.String("id", itemID), zap.Error(err))
		return nil, err
	}

	events, err := s.collect(ctx, item)
	if err != nil {
		s.logger.Error("生成物料时间线失败", zap.String("item_id", itemID), zap.Error(err))
		return nil, err
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].At.Before(events[j].At)
	})

	return &dto.TimelineResponse{
		ItemID: item.ItemID,
		Code:   item.Code,
		Events: events,
	}, nil
}

func (s *timelineService) collect(ctx context.Context, item *model.CatalogItem) ([]dto.TimelineEvent, error) {
	var events []dto.TimelineEvent

	// ── 来源：编码申请 ──
	if item.SourceRequestID != nil {
		recs, err := s.repo.Audit.ListBySubject(ctx, model.SubjectCodeRequest, *item.SourceRequestID)
		if err != nil {
			return nil, err
		}
		for i := range recs {
			events = append(events, auditEvent(&recs[i]))
		}
	}

	// ── 物料自身：直接建档与库位登记 ──
	itemRecs, err := s.repo.Audit.ListBySubjects(ctx, model.SubjectCatalogItem, []string{item.ItemID},
		model.AuditCreation, model.AuditAddressed)
	if err != nil {
		return nil, err
	}
	for i := range itemRecs {
		// 经审批生成的物料，建档已体现在申请审计中
		if itemRecs[i].Action == model.AuditCreation && item.SourceRequestID != nil {
			continue
		}
		events = append(events, auditEvent(&itemRecs[i]))
	}

	// 库位只用于摘要与盘点关联
	addrs, err := s.repo.ItemAddress.ListByItem(ctx, item.ItemID)
	if err != nil {
		return nil, err
	}
	addrIDs := make([]string, 0, len(addrs))
	labels := make(map[string]string, len(addrs))
	for i := range addrs {
		addrIDs = append(addrIDs, addrs[i].AddressID)
		labels[addrs[i].AddressID] = addrs[i].Label()
	}

	// ── 盘点与调整 ──
	if len(addrIDs) > 0 {
		counts, err := s.repo.InventoryCount.ListByAddresses(ctx, addrIDs)
		if err != nil {
			return nil, err
		}
		if len(counts) > 0 {
			countIDs := make([]string, 0, len(counts))
			byID := make(map[string]*model.InventoryCount, len(counts))
			for i := range counts {
				countIDs = append(countIDs, counts[i].CountID)
				byID[counts[i].CountID] = &counts[i]
			}
			recs, err := s.repo.Audit.ListBySubjects(ctx, model.SubjectInventoryCount, countIDs,
				model.AuditCountRecorded, model.AuditQuantityAdjusted)
			if err != nil {
				return nil, err
			}
			for i := range recs {
				ev := auditEvent(&recs[i])
				if c, ok := byID[recs[i].SubjectID]; ok {
					ev.Summary = countSummary(c, labels[c.AddressID], &recs[i])
				}
				events = append(events, ev)
			}
		}
	}

	// ── 库存移动 ──
	moves, err := s.repo.StockMovement.ListByItem(ctx, item.ItemID)
	if err != nil {
		return nil, err
	}
	for i := range moves {
		m := &moves[i]
		ev := dto.TimelineEvent{
			At:        m.CreatedAt,
			Kind:      kindStockMovement,
			Source:    sourceStockMovement,
			SubjectID: m.MovementID,
			Actor:     dto.ActorRef{ID: m.ActorID, Name: m.ActorName},
			Summary:   m.Summary(),
		}
		if m.AddressID != nil {
			ev.Details = map[string]string{"address": labels[*m.AddressID]}
		}
		events = append(events, ev)
	}

	return events, nil
}

func auditEvent(r *model.AuditRecord) dto.TimelineEvent {
	ev := dto.TimelineEvent{
		At:        r.CreatedAt,
		Kind:      r.Action,
		Source:    r.SubjectType,
		SubjectID: r.SubjectID,
		Actor:     dto.ActorRef{ID: r.ActorID, Name: r.ActorLabel},
		Reason:    r.Reason,
		Details:   r.Metadata,
	}
	if r.NewValue != nil {
		ev.Summary = *r.NewValue
		if r.PreviousValue != nil {
			ev.Summary = *r.PreviousValue + " → " + *r.NewValue
		}
	}
	return ev
}

func countSummary(c *model.InventoryCount, label string, r *model.AuditRecord) string {
	qty := ""
	if r.NewValue != nil {
		qty = *r.NewValue
	}
	if r.Action == model.AuditQuantityAdjusted && r.PreviousValue != nil {
		qty = *r.PreviousValue + " → " + qty
	}
	return fmt.Sprintf("%s 第 %d 轮: %s", label, c.PassNumber, qty)
}

