package handler

import (
	"github.com/gin-gonic/gin"

	"valve-vault/backend/internal/dto"
	"valve-vault/backend/internal/service"
	"valve-vault/backend/pkg/response"
)

// CatalogHandler 物料目录模块 HTTP 处理器
type CatalogHandler struct {
	catalogSvc  service.CatalogService
	timelineSvc service.TimelineService
}

// NewCatalogHandler 创建 CatalogHandler
func NewCatalogHandler(catalogSvc service.CatalogService, timelineSvc service.TimelineService) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc, timelineSvc: timelineSvc}
}

// CreateItem 直接建档
// POST /api/v1/catalog-items
func (h *CatalogHandler) CreateItem(c *gin.Context) {
	var req dto.CreateCatalogItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	item, err := h.catalogSvc.Create(c.Request.Context(), &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, item)
}

// GetItem 物料详情
// GET /api/v1/catalog-items/:id
func (h *CatalogHandler) GetItem(c *gin.Context) {
	id, ok := mustGetID(c, "物料")
	if !ok {
		return
	}

	item, err := h.catalogSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, item)
}

// AddAddress 登记库位
// POST /api/v1/catalog-items/:id/addresses
func (h *CatalogHandler) AddAddress(c *gin.Context) {
	id, ok := mustGetID(c, "物料")
	if !ok {
		return
	}

	var req dto.CreateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	addr, err := h.catalogSvc.AddAddress(c.Request.Context(), id, &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, addr)
}

// ListAddresses 物料库位列表
// GET /api/v1/catalog-items/:id/addresses
func (h *CatalogHandler) ListAddresses(c *gin.Context) {
	id, ok := mustGetID(c, "物料")
	if !ok {
		return
	}

	addrs, err := h.catalogSvc.ListAddresses(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": addrs})
}

// RecordMovement 登记库存移动
// POST /api/v1/catalog-items/:id/movements
func (h *CatalogHandler) RecordMovement(c *gin.Context) {
	id, ok := mustGetID(c, "物料")
	if !ok {
		return
	}

	var req dto.CreateMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	m, err := h.catalogSvc.RecordMovement(c.Request.Context(), id, &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, m)
}

// GetTimeline 物料时间线
// GET /api/v1/catalog-items/:id/timeline
func (h *CatalogHandler) GetTimeline(c *gin.Context) {
	id, ok := mustGetID(c, "物料")
	if !ok {
		return
	}

	tl, err := h.timelineSvc.GetTimeline(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, tl)
}
