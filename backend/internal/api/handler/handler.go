package handler

import (
	"go.uber.org/zap"

	"valve-vault/backend/internal/service"
	"valve-vault/backend/pkg/notify"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth        *AuthHandler
	CodeRequest *CodeRequestHandler
	Catalog     *CatalogHandler
	Inventory   *InventoryHandler
	WS          *WSHandler
}

// NewHandler 创建 Handler 聚合
// revoker 可为 nil
func NewHandler(svc *service.Service, revoker TokenRevoker, hub *notify.Hub, allowOrigins []string, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:        NewAuthHandler(svc.Permissions, revoker, logger),
		CodeRequest: NewCodeRequestHandler(svc.CodeRequest, svc.Approval),
		Catalog:     NewCatalogHandler(svc.Catalog, svc.Timeline),
		Inventory:   NewInventoryHandler(svc.Inventory),
		WS:          NewWSHandler(hub, allowOrigins, logger),
	}
}
