package service

import (
	"context"
	"errors"
	"testing"

	"valve-vault/backend/internal/dto"
	"valve-vault/backend/internal/model"
)

// ── Create 测试 ──

func TestCatalogService_Create(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	item, err := env.svc.Catalog.Create(ctx, &dto.CreateCatalogItemRequest{Code: "flg100", Description: "法兰 DN100"}, adminB)
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if item.Code != "FLG100" || !item.Active {
		t.Errorf("期望有效物料 FLG100，实际=%s active=%v", item.Code, item.Active)
	}
	if item.SourceRequestID != nil {
		t.Error("直接建档的物料不应有来源申请")
	}
	if got := env.auditActions(t, model.SubjectCatalogItem, item.ID); !equalStrings(got, []string{model.AuditCreation}) {
		t.Errorf("期望一条 creation 审计，实际=%v", got)
	}

	if _, err := env.svc.Catalog.Create(ctx, &dto.CreateCatalogItemRequest{Code: "FLG100", Description: "重复"}, adminB); !errors.Is(err, ErrDuplicateCode) {
		t.Errorf("期望 ErrDuplicateCode，实际: %v", err)
	}
}

func TestCatalogService_Create_Rejected(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	if _, err := env.svc.Catalog.Create(ctx, &dto.CreateCatalogItemRequest{Code: "FLG100", Description: "法兰"}, userA); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("期望 ErrPermissionDenied，实际: %v", err)
	}
	if _, err := env.svc.Catalog.Create(ctx, &dto.CreateCatalogItemRequest{Code: "FLG", Description: "法兰"}, adminB); !errors.Is(err, ErrInvalidCodeFormat) {
		t.Errorf("期望 ErrInvalidCodeFormat，实际: %v", err)
	}
	if _, err := env.svc.Catalog.Create(ctx, &dto.CreateCatalogItemRequest{Code: "FLG100", Description: " "}, adminB); !errors.Is(err, ErrEmptyDescription) {
		t.Errorf("期望 ErrEmptyDescription，实际: %v", err)
	}
}

func TestCatalogService_GetByID_NotFound(t *testing.T) {
	env := setupTestService(t)

	_, err := env.svc.Catalog.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, ErrItemNotFound) {
		t.Errorf("期望 ErrItemNotFound，实际: %v", err)
	}
}

// ── 库位 ──

func TestCatalogService_AddAddress(t *testing.T) {
	env := setupTestService(t)
	itemID := env.approvedItem(t, "VALVE-X", "ABC123")

	addr := env.addAddress(t, itemID)
	if addr.Label != "CD01-A-03-2-05" {
		t.Errorf("期望 Label=CD01-A-03-2-05，实际=%s", addr.Label)
	}

	addrs, err := env.svc.Catalog.ListAddresses(context.Background(), itemID)
	if err != nil {
		t.Fatalf("ListAddresses 应成功: %v", err)
	}
	if len(addrs) != 1 || addrs[0].ID != addr.ID {
		t.Errorf("期望 1 个库位，实际=%v", addrs)
	}

	acts := env.auditActions(t, model.SubjectCatalogItem, itemID)
	if !equalStrings(acts, []string{model.AuditAddressed}) {
		t.Errorf("期望 addressed 审计，实际=%v", acts)
	}
}

func TestCatalogService_AddAddress_UnknownItem(t *testing.T) {
	env := setupTestService(t)

	_, err := env.svc.Catalog.AddAddress(context.Background(), "00000000-0000-0000-0000-000000000000", &dto.CreateAddressRequest{Warehouse: "CD01"}, userA)
	if !errors.Is(err, ErrItemNotFound) {
		t.Errorf("期望 ErrItemNotFound，实际: %v", err)
	}
}

// ── 库存移动 ──

func TestCatalogService_RecordMovement(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	itemID := env.approvedItem(t, "VALVE-X", "ABC123")
	addr := env.addAddress(t, itemID)

	m, err := env.svc.Catalog.RecordMovement(ctx, itemID, &dto.CreateMovementRequest{
		AddressID: &addr.ID, Type: model.MovementIn, Quantity: qty(10),
	}, userA)
	if err != nil {
		t.Fatalf("RecordMovement 应成功: %v", err)
	}
	if !m.Quantity.Equal(qty(10)) || m.Actor.ID != userA.ID {
		t.Errorf("移动记录不正确: %+v", m)
	}

	if _, err := env.svc.Catalog.RecordMovement(ctx, itemID, &dto.CreateMovementRequest{Type: model.MovementOut, Quantity: qty(0)}, userA); !errors.Is(err, ErrInvalidMovementAmount) {
		t.Errorf("期望 ErrInvalidMovementAmount，实际: %v", err)
	}

	other := env.approvedItem(t, "VALVE-Y", "XYZ789")
	if _, err := env.svc.Catalog.RecordMovement(ctx, other, &dto.CreateMovementRequest{
		AddressID: &addr.ID, Type: model.MovementOut, Quantity: qty(1),
	}, userA); !errors.Is(err, ErrAddressItemMismatch) {
		t.Errorf("期望 ErrAddressItemMismatch，实际: %v", err)
	}
}

// ── 时间线 ──

// 申请 → 审批 → 定位 → 盘点 → 调整，每个节点恰好出现一次且按时间排序
func TestTimelineService_FullLifecycle(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	itemID := env.approvedItem(t, "VALVE-X", "ABC123")
	addr := env.addAddress(t, itemID)
	c := env.recordCount(t, addr.ID, 1, 50)
	if _, err := env.svc.Inventory.AdjustCount(ctx, c.ID, &dto.AdjustCountRequest{Quantity: qty(45), Reason: "recount error"}, adminB); err != nil {
		t.Fatalf("AdjustCount 应成功: %v", err)
	}

	tl, err := env.svc.Timeline.GetTimeline(ctx, itemID)
	if err != nil {
		t.Fatalf("GetTimeline 应成功: %v", err)
	}
	if tl.Code != "ABC123" {
		t.Errorf("期望 Code=ABC123，实际=%s", tl.Code)
	}

	want := []string{
		model.AuditCreation,
		model.AuditClaim,
		model.AuditCodeProposed,
		model.AuditApproval,
		model.AuditAddressed,
		model.AuditCountRecorded,
		model.AuditQuantityAdjusted,
	}
	kinds := make([]string, 0, len(tl.Events))
	for _, ev := range tl.Events {
		kinds = append(kinds, ev.Kind)
	}
	if !equalStrings(kinds, want) {
		t.Fatalf("期望事件 %v，实际=%v", want, kinds)
	}

	for i := 1; i < len(tl.Events); i++ {
		if tl.Events[i].At.Before(tl.Events[i-1].At) {
			t.Errorf("事件 %d 早于前一事件", i)
		}
	}

	adj := tl.Events[len(tl.Events)-1]
	if adj.Reason == nil || *adj.Reason != "recount error" {
		t.Errorf("调整事件应带原因，实际=%v", adj.Reason)
	}
	if adj.Summary != "CD01-A-03-2-05 第 1 轮: 50 → 45" {
		t.Errorf("调整事件摘要不正确: %s", adj.Summary)
	}
}

// 连续操作落在同一秒内：行记录与审计同用应用时钟，定位不会排到审批之前
func TestTimelineService_SameSecondEventsStayOrdered(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	itemID := env.approvedItem(t, "VALVE-X", "ABC123")
	addr := env.addAddress(t, itemID)
	env.recordCount(t, addr.ID, 1, 7)

	row, err := env.repo.ItemAddress.GetByID(ctx, addr.ID)
	if err != nil {
		t.Fatalf("读取库位失败: %v", err)
	}
	item, err := env.repo.CatalogItem.GetByID(ctx, itemID)
	if err != nil {
		t.Fatalf("读取物料失败: %v", err)
	}
	if item.SourceRequestID == nil {
		t.Fatal("审批生成的物料应关联来源申请")
	}
	approvals, err := env.repo.Audit.ListBySubjects(ctx, model.SubjectCodeRequest, []string{*item.SourceRequestID}, model.AuditApproval)
	if err != nil {
		t.Fatalf("读取审计失败: %v", err)
	}
	if len(approvals) != 1 {
		t.Fatalf("期望 1 条审批审计，实际 %d 条", len(approvals))
	}
	if row.CreatedAt.Before(approvals[0].CreatedAt) {
		t.Errorf("库位创建时间 %v 早于审批时间 %v", row.CreatedAt, approvals[0].CreatedAt)
	}

	tl, err := env.svc.Timeline.GetTimeline(ctx, itemID)
	if err != nil {
		t.Fatalf("GetTimeline 应成功: %v", err)
	}
	kinds := make([]string, 0, len(tl.Events))
	for _, ev := range tl.Events {
		kinds = append(kinds, ev.Kind)
	}
	want := []string{
		model.AuditCreation,
		model.AuditClaim,
		model.AuditCodeProposed,
		model.AuditApproval,
		model.AuditAddressed,
		model.AuditCountRecorded,
	}
	if !equalStrings(kinds, want) {
		t.Fatalf("期望事件 %v，实际=%v", want, kinds)
	}
	for i := 1; i < len(tl.Events); i++ {
		if tl.Events[i].At.Before(tl.Events[i-1].At) {
			t.Errorf("事件 %s 早于前一事件 %s", tl.Events[i].Kind, tl.Events[i-1].Kind)
		}
	}

	addressed := tl.Events[4]
	if addressed.Source != model.SubjectCatalogItem || addressed.SubjectID != itemID {
		t.Errorf("定位事件应挂在物料上，实际=%s/%s", addressed.Source, addressed.SubjectID)
	}
	if addressed.Summary != "CD01-A-03-2-05" {
		t.Errorf("定位事件摘要应为库位标签，实际=%s", addressed.Summary)
	}
}

func TestTimelineService_DirectItem(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	item, err := env.svc.Catalog.Create(ctx, &dto.CreateCatalogItemRequest{Code: "FLG100", Description: "法兰"}, adminB)
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	addr := env.addAddress(t, item.ID)
	if _, err := env.svc.Catalog.RecordMovement(ctx, item.ID, &dto.CreateMovementRequest{
		AddressID: &addr.ID, Type: model.MovementIn, Quantity: qty(3),
	}, userA); err != nil {
		t.Fatalf("RecordMovement 应成功: %v", err)
	}

	tl, err := env.svc.Timeline.GetTimeline(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetTimeline 应成功: %v", err)
	}
	kinds := make([]string, 0, len(tl.Events))
	for _, ev := range tl.Events {
		kinds = append(kinds, ev.Kind)
	}
	want := []string{model.AuditCreation, model.AuditAddressed, kindStockMovement}
	if !equalStrings(kinds, want) {
		t.Errorf("期望事件 %v，实际=%v", want, kinds)
	}
	if tl.Events[0].Source != model.SubjectCatalogItem {
		t.Errorf("直接建档事件来源应为 catalog_item，实际=%s", tl.Events[0].Source)
	}
	if tl.Events[2].Summary != "+3" {
		t.Errorf("期望移动摘要 +3，实际=%s", tl.Events[2].Summary)
	}
}

func TestTimelineService_NotFound(t *testing.T) {
	env := setupTestService(t)

	_, err := env.svc.Timeline.GetTimeline(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, ErrItemNotFound) {
		t.Errorf("期望 ErrItemNotFound，实际: %v", err)
	}
}
