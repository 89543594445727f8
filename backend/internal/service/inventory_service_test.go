package service

import (
	"context"
	"errors"
	"testing"

	"valve-vault/backend/internal/dto"
	"valve-vault/backend/internal/model"
	"valve-vault/backend/pkg/notify"
)

func (e *testEnv) recordCount(t *testing.T, addressID string, pass int, q int64) *dto.InventoryCountResponse {
	t.Helper()
	c, err := e.svc.Inventory.RecordCount(context.Background(), &dto.RecordCountRequest{
		AddressID:  addressID,
		PassNumber: pass,
		Quantity:   qty(q),
	}, userA)
	if err != nil {
		t.Fatalf("RecordCount 应成功: %v", err)
	}
	return c
}

// ── RecordCount 测试 ──

func TestInventoryService_RecordCount_Success(t *testing.T) {
	env := setupTestService(t)
	itemID := env.approvedItem(t, "VALVE-X", "ABC123")
	addr := env.addAddress(t, itemID)

	c := env.recordCount(t, addr.ID, 1, 50)
	if !c.Quantity.Equal(qty(50)) {
		t.Errorf("期望 Quantity=50，实际=%s", c.Quantity)
	}
	if c.CountedBy.ID != userA.ID {
		t.Errorf("期望盘点人=%s，实际=%s", userA.ID, c.CountedBy.ID)
	}

	recs, _ := env.svc.Inventory.ListAudit(context.Background(), c.ID)
	if len(recs) != 1 || recs[0].Action != model.AuditCountRecorded {
		t.Fatalf("期望一条 count-recorded 审计，实际=%v", recs)
	}
	if *recs[0].NewValue != "50" || recs[0].Metadata["pass_number"] != "1" {
		t.Errorf("审计内容不正确: new=%s meta=%v", *recs[0].NewValue, recs[0].Metadata)
	}
	if got := env.notifier.kinds(notify.TopicInventoryCounts); !equalStrings(got, []string{model.AuditCountRecorded}) {
		t.Errorf("期望发布盘点通知，实际=%v", got)
	}
}

func TestInventoryService_RecordCount_Validation(t *testing.T) {
	env := setupTestService(t)
	itemID := env.approvedItem(t, "VALVE-X", "ABC123")
	addr := env.addAddress(t, itemID)
	ctx := context.Background()

	cases := []struct {
		name string
		req  dto.RecordCountRequest
		want error
	}{
		{"轮次为 0", dto.RecordCountRequest{AddressID: addr.ID, PassNumber: 0, Quantity: qty(1)}, ErrInvalidPassNumber},
		{"轮次超限", dto.RecordCountRequest{AddressID: addr.ID, PassNumber: 4, Quantity: qty(1)}, ErrInvalidPassNumber},
		{"数量为负", dto.RecordCountRequest{AddressID: addr.ID, PassNumber: 1, Quantity: qty(-1)}, ErrNegativeQuantity},
		{"库位不存在", dto.RecordCountRequest{AddressID: "00000000-0000-0000-0000-000000000000", PassNumber: 1, Quantity: qty(1)}, ErrAddressNotFound},
		{"跳过第一轮", dto.RecordCountRequest{AddressID: addr.ID, PassNumber: 2, Quantity: qty(1)}, ErrPassOutOfOrder},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.req
			_, err := env.svc.Inventory.RecordCount(ctx, &req, userA)
			if !errors.Is(err, tc.want) {
				t.Errorf("期望 %v，实际: %v", tc.want, err)
			}
		})
	}
}

func TestInventoryService_RecordCount_DuplicatePass(t *testing.T) {
	env := setupTestService(t)
	itemID := env.approvedItem(t, "VALVE-X", "ABC123")
	addr := env.addAddress(t, itemID)
	env.recordCount(t, addr.ID, 1, 50)

	_, err := env.svc.Inventory.RecordCount(context.Background(), &dto.RecordCountRequest{
		AddressID: addr.ID, PassNumber: 1, Quantity: qty(48),
	}, userC)
	if !errors.Is(err, ErrDuplicateCountPass) {
		t.Errorf("期望 ErrDuplicateCountPass，实际: %v", err)
	}

	env.recordCount(t, addr.ID, 2, 48)
	counts, err := env.svc.Inventory.ListByAddress(context.Background(), addr.ID)
	if err != nil {
		t.Fatalf("ListByAddress 应成功: %v", err)
	}
	if len(counts) != 2 || counts[0].PassNumber != 1 || counts[1].PassNumber != 2 {
		t.Errorf("期望按轮次返回 2 条，实际=%v", counts)
	}
}

// ── AdjustCount 测试 ──

// 第一轮 50，调整为 45：数量更新并产生一条 50 → 45 的审计
func TestInventoryService_AdjustCount(t *testing.T) {
	env := setupTestService(t)
	itemID := env.approvedItem(t, "VALVE-X", "ABC123")
	addr := env.addAddress(t, itemID)
	c := env.recordCount(t, addr.ID, 1, 50)
	ctx := context.Background()

	out, err := env.svc.Inventory.AdjustCount(ctx, c.ID, &dto.AdjustCountRequest{Quantity: qty(45), Reason: "recount error"}, adminB)
	if err != nil {
		t.Fatalf("AdjustCount 应成功: %v", err)
	}
	if !out.Count.Quantity.Equal(qty(45)) {
		t.Errorf("期望 Quantity=45，实际=%s", out.Count.Quantity)
	}
	if *out.Audit.PreviousValue != "50" || *out.Audit.NewValue != "45" {
		t.Errorf("期望 50 → 45，实际 %s → %s", *out.Audit.PreviousValue, *out.Audit.NewValue)
	}
	if out.Audit.Reason == nil || *out.Audit.Reason != "recount error" {
		t.Errorf("期望原因=recount error，实际=%v", out.Audit.Reason)
	}

	counts, _ := env.svc.Inventory.ListByAddress(ctx, addr.ID)
	if !counts[0].Quantity.Equal(qty(45)) {
		t.Errorf("持久化数量应为 45，实际=%s", counts[0].Quantity)
	}

	var adjusted int
	recs, _ := env.svc.Inventory.ListAudit(ctx, c.ID)
	for _, r := range recs {
		if r.Action == model.AuditQuantityAdjusted {
			adjusted++
		}
	}
	if adjusted != 1 {
		t.Errorf("期望 1 条 quantity-adjusted 审计，实际=%d", adjusted)
	}
}

// 相同调整重复提交：每次都追加审计
func TestInventoryService_AdjustCount_Repeated(t *testing.T) {
	env := setupTestService(t)
	itemID := env.approvedItem(t, "VALVE-X", "ABC123")
	addr := env.addAddress(t, itemID)
	c := env.recordCount(t, addr.ID, 1, 50)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := env.svc.Inventory.AdjustCount(ctx, c.ID, &dto.AdjustCountRequest{Quantity: qty(45), Reason: "复盘"}, superD); err != nil {
			t.Fatalf("第 %d 次 AdjustCount 应成功: %v", i+1, err)
		}
	}

	recs, _ := env.svc.Inventory.ListAudit(ctx, c.ID)
	if len(recs) != 3 {
		t.Fatalf("期望 3 条审计，实际=%d", len(recs))
	}
	if *recs[2].PreviousValue != "45" || *recs[2].NewValue != "45" {
		t.Errorf("第二次调整应记录 45 → 45，实际 %s → %s", *recs[2].PreviousValue, *recs[2].NewValue)
	}
}

func TestInventoryService_AdjustCount_Rejected(t *testing.T) {
	env := setupTestService(t)
	itemID := env.approvedItem(t, "VALVE-X", "ABC123")
	addr := env.addAddress(t, itemID)
	c := env.recordCount(t, addr.ID, 1, 50)
	ctx := context.Background()

	cases := []struct {
		name  string
		id    string
		req   dto.AdjustCountRequest
		actor Actor
		want  error
	}{
		{"缺少原因", c.ID, dto.AdjustCountRequest{Quantity: qty(45), Reason: "  "}, adminB, ErrEmptyReason},
		{"无调整权限", c.ID, dto.AdjustCountRequest{Quantity: qty(45), Reason: "复盘"}, userA, ErrPermissionDenied},
		{"数量为负", c.ID, dto.AdjustCountRequest{Quantity: qty(-5), Reason: "复盘"}, adminB, ErrNegativeQuantity},
		{"记录不存在", "00000000-0000-0000-0000-000000000000", dto.AdjustCountRequest{Quantity: qty(45), Reason: "复盘"}, adminB, ErrCountNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.req
			_, err := env.svc.Inventory.AdjustCount(ctx, tc.id, &req, tc.actor)
			if !errors.Is(err, tc.want) {
				t.Errorf("期望 %v，实际: %v", tc.want, err)
			}
		})
	}

	counts, _ := env.svc.Inventory.ListByAddress(ctx, addr.ID)
	if !counts[0].Quantity.Equal(qty(50)) {
		t.Errorf("调整失败后数量应保持 50，实际=%s", counts[0].Quantity)
	}
}

// 审计只增不减，已有记录内容不变
func TestInventoryService_AuditAppendOnly(t *testing.T) {
	env := setupTestService(t)
	itemID := env.approvedItem(t, "VALVE-X", "ABC123")
	addr := env.addAddress(t, itemID)
	c := env.recordCount(t, addr.ID, 1, 50)
	ctx := context.Background()

	snapshot, _ := env.svc.Inventory.ListAudit(ctx, c.ID)
	for i, q := range []int64{45, 44, 46} {
		if _, err := env.svc.Inventory.AdjustCount(ctx, c.ID, &dto.AdjustCountRequest{Quantity: qty(q), Reason: "复盘"}, adminB); err != nil {
			t.Fatalf("AdjustCount 应成功: %v", err)
		}
		recs, _ := env.svc.Inventory.ListAudit(ctx, c.ID)
		if len(recs) != len(snapshot)+1 {
			t.Fatalf("第 %d 次调整后期望 %d 条审计，实际=%d", i+1, len(snapshot)+1, len(recs))
		}
		for j := range snapshot {
			if recs[j].ID != snapshot[j].ID || *recs[j].NewValue != *snapshot[j].NewValue || !recs[j].CreatedAt.Equal(snapshot[j].CreatedAt) {
				t.Fatalf("已有审计记录 %d 被修改", snapshot[j].ID)
			}
		}
		snapshot = recs
	}

	rec := model.AuditRecord{AuditID: snapshot[0].ID}
	if err := env.db.Model(&rec).Update("reason", "篡改").Error; !errors.Is(err, model.ErrAuditImmutable) {
		t.Errorf("期望 ErrAuditImmutable，实际: %v", err)
	}
}
