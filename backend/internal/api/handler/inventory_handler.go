package handler

import (
	"github.com/gin-gonic/gin"

	"valve-vault/backend/internal/dto"
	"valve-vault/backend/internal/service"
	"valve-vault/backend/pkg/response"
)

// InventoryHandler 盘点模块 HTTP 处理器
type InventoryHandler struct {
	inventorySvc service.InventoryService
}

// NewInventoryHandler 创建 InventoryHandler
func NewInventoryHandler(inventorySvc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventorySvc: inventorySvc}
}

// RecordCount 登记一轮盘点
// POST /api/v1/inventory-counts
func (h *InventoryHandler) RecordCount(c *gin.Context) {
	var req dto.RecordCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	count, err := h.inventorySvc.RecordCount(c.Request.Context(), &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, count)
}

// ListCounts 库位盘点记录
// GET /api/v1/inventory-counts?address_id=
func (h *InventoryHandler) ListCounts(c *gin.Context) {
	var req dto.CountListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	counts, err := h.inventorySvc.ListByAddress(c.Request.Context(), req.AddressID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": counts})
}

// AdjustCount 调整盘点数量（需调整权限与原因）
// POST /api/v1/inventory-counts/:id/adjustments
func (h *InventoryHandler) AdjustCount(c *gin.Context) {
	id, ok := mustGetID(c, "盘点记录")
	if !ok {
		return
	}

	var req dto.AdjustCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.inventorySvc.AdjustCount(c.Request.Context(), id, &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// ListAudit 盘点记录审计
// GET /api/v1/inventory-counts/:id/audit
func (h *InventoryHandler) ListAudit(c *gin.Context) {
	id, ok := mustGetID(c, "盘点记录")
	if !ok {
		return
	}

	records, err := h.inventorySvc.ListAudit(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": records})
}
