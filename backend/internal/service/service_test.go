package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"valve-vault/backend/config"
	"valve-vault/backend/internal/dto"
	"valve-vault/backend/internal/model"
	"valve-vault/backend/internal/repository"
	"valve-vault/backend/internal/testutil"
	"valve-vault/backend/pkg/notify"
)

// ── 测试辅助 ──

var (
	userA  = Actor{ID: "u-ana", Name: "Ana", Role: "clerk"}
	userC  = Actor{ID: "u-caio", Name: "Caio", Role: "clerk"}
	adminB = Actor{ID: "u-bruno", Name: "Bruno", Role: "admin"}
	superD = Actor{ID: "u-dora", Name: "Dora", Role: "supervisor"}
)

// captureNotifier 记录所有发布的事件
type captureNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *captureNotifier) Publish(_ context.Context, e notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *captureNotifier) kinds(topic string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		if e.Topic == topic {
			out = append(out, e.Kind)
		}
	}
	return out
}

type testEnv struct {
	svc      *Service
	repo     *repository.Repository
	db       *gorm.DB
	notifier *captureNotifier
}

func testConfig() *config.Config {
	return &config.Config{
		Workflow: config.WorkflowConfig{
			CodeLength:     6,
			MaxCountPasses: 3,
		},
		Permissions: config.PermissionsConfig{
			Approve:      []string{"admin", "approver"},
			Reject:       []string{"admin", "approver"},
			Override:     []string{"admin"},
			Adjust:       []string{"admin", "supervisor"},
			Delete:       []string{"admin"},
			ForceRelease: []string{"admin"},
			Catalog:      []string{"admin"},
		},
	}
}

func setupTestService(t *testing.T, opts ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	perms, err := NewPermissionResolver(&cfg.Permissions)
	if err != nil {
		t.Fatalf("NewPermissionResolver 失败: %v", err)
	}

	db := testutil.NewSQLiteDB(t)
	repo := repository.NewRepository(db)
	n := &captureNotifier{}

	return &testEnv{
		svc:      NewService(cfg, repo, perms, n, zap.NewNop()),
		repo:     repo,
		db:       db,
		notifier: n,
	}
}

func (e *testEnv) createRequest(t *testing.T, desc string) *dto.CodeRequestResponse {
	t.Helper()
	req, err := e.svc.CodeRequest.Create(context.Background(), &dto.CreateCodeRequestRequest{Description: desc}, userA)
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	return req
}

// proposedRequest 创建一条由 userA 认领并拟定 code 的申请
func (e *testEnv) proposedRequest(t *testing.T, desc, code string) *dto.CodeRequestResponse {
	t.Helper()
	ctx := context.Background()
	req := e.createRequest(t, desc)
	if _, err := e.svc.CodeRequest.Claim(ctx, req.ID, userA); err != nil {
		t.Fatalf("Claim 应成功: %v", err)
	}
	out, err := e.svc.CodeRequest.ProposeCode(ctx, req.ID, &dto.ProposeCodeRequest{Code: code}, userA)
	if err != nil {
		t.Fatalf("ProposeCode 应成功: %v", err)
	}
	return out
}

// approvedItem 走完整申请流程，返回生成的物料 ID
func (e *testEnv) approvedItem(t *testing.T, desc, code string) string {
	t.Helper()
	req := e.proposedRequest(t, desc, code)
	out, err := e.svc.Approval.Approve(context.Background(), req.ID, adminB)
	if err != nil {
		t.Fatalf("Approve 应成功: %v", err)
	}
	if out.CatalogItemID == nil {
		t.Fatal("审批通过后应关联物料")
	}
	return *out.CatalogItemID
}

func (e *testEnv) addAddress(t *testing.T, itemID string) *dto.AddressResponse {
	t.Helper()
	addr, err := e.svc.Catalog.AddAddress(context.Background(), itemID, &dto.CreateAddressRequest{
		Warehouse: "CD01", Zone: "A", Aisle: "03", Shelf: "2", Position: "05",
	}, userA)
	if err != nil {
		t.Fatalf("AddAddress 应成功: %v", err)
	}
	return addr
}

func (e *testEnv) auditActions(t *testing.T, subjectType, id string) []string {
	t.Helper()
	recs, err := e.repo.Audit.ListBySubject(context.Background(), subjectType, id)
	if err != nil {
		t.Fatalf("ListBySubject 失败: %v", err)
	}
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Action)
	}
	return out
}

func (e *testEnv) loadRequest(t *testing.T, id string) *model.CodeRequest {
	t.Helper()
	req, err := e.repo.CodeRequest.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("读取申请失败: %v", err)
	}
	return req
}

func qty(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
