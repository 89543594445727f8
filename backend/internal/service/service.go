package service

import (
	"go.uber.org/zap"

	"valve-vault/backend/config"
	"valve-vault/backend/internal/repository"
	"valve-vault/backend/pkg/notify"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Audit       AuditLedger
	CodeRequest CodeRequestService
	Approval    ApprovalService
	Inventory   InventoryService
	Catalog     CatalogService
	Timeline    TimelineService
	Permissions PermissionResolver
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	perms PermissionResolver,
	notifier notify.Notifier,
	logger *zap.Logger,
) *Service {
	audit := NewAuditLedger(repo, logger)
	return &Service{
		Audit:       audit,
		CodeRequest: NewCodeRequestService(&cfg.Workflow, repo, audit, perms, notifier, logger),
		Approval:    NewApprovalService(repo, audit, perms, notifier, logger),
		Inventory:   NewInventoryService(&cfg.Workflow, repo, audit, perms, notifier, logger),
		Catalog:     NewCatalogService(&cfg.Workflow, repo, audit, perms, notifier, logger),
		Timeline:    NewTimelineService(repo, logger),
		Permissions: perms,
	}
}
