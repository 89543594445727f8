package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"valve-vault/backend/internal/dto"
	"valve-vault/backend/internal/service"
	"valve-vault/backend/pkg/response"
)

// CodeRequestHandler 编码申请模块 HTTP 处理器
type CodeRequestHandler struct {
	requestSvc  service.CodeRequestService
	approvalSvc service.ApprovalService
}

// NewCodeRequestHandler 创建 CodeRequestHandler
func NewCodeRequestHandler(requestSvc service.CodeRequestService, approvalSvc service.ApprovalService) *CodeRequestHandler {
	return &CodeRequestHandler{requestSvc: requestSvc, approvalSvc: approvalSvc}
}

// CreateRequest 提交编码申请
// POST /api/v1/code-requests
func (h *CodeRequestHandler) CreateRequest(c *gin.Context) {
	var req dto.CreateCodeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.requestSvc.Create(c.Request.Context(), &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, result)
}

// ListRequests 编码申请列表
// GET /api/v1/code-requests
func (h *CodeRequestHandler) ListRequests(c *gin.Context) {
	var req dto.CodeRequestListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, total, err := h.requestSvc.List(c.Request.Context(), &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetRequest 编码申请详情
// GET /api/v1/code-requests/:id
func (h *CodeRequestHandler) GetRequest(c *gin.Context) {
	id, ok := mustGetID(c, "申请")
	if !ok {
		return
	}

	result, err := h.requestSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// Claim 认领申请
// POST /api/v1/code-requests/:id/claim
func (h *CodeRequestHandler) Claim(c *gin.Context) {
	h.transition(c, h.requestSvc.Claim)
}

// Release 释放认领（仅持有人）
// POST /api/v1/code-requests/:id/release
func (h *CodeRequestHandler) Release(c *gin.Context) {
	h.transition(c, h.requestSvc.Release)
}

// ForceRelease 强制释放他人认领
// POST /api/v1/code-requests/:id/force-release
func (h *CodeRequestHandler) ForceRelease(c *gin.Context) {
	h.withReason(c, h.requestSvc.ForceRelease)
}

// ProposeCode 提交拟定编码
// POST /api/v1/code-requests/:id/proposal
func (h *CodeRequestHandler) ProposeCode(c *gin.Context) {
	id, ok := mustGetID(c, "申请")
	if !ok {
		return
	}

	var req dto.ProposeCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.requestSvc.ProposeCode(c.Request.Context(), id, &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// EditProposedCode 覆盖修改拟定编码
// PUT /api/v1/code-requests/:id/proposal
func (h *CodeRequestHandler) EditProposedCode(c *gin.Context) {
	id, ok := mustGetID(c, "申请")
	if !ok {
		return
	}

	var req dto.EditProposedCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.requestSvc.EditProposedCode(c.Request.Context(), id, &req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// Approve 审批通过，写入物料目录
// POST /api/v1/code-requests/:id/approve
func (h *CodeRequestHandler) Approve(c *gin.Context) {
	h.transition(c, h.approvalSvc.Approve)
}

// Reject 驳回申请
// POST /api/v1/code-requests/:id/reject
func (h *CodeRequestHandler) Reject(c *gin.Context) {
	h.withReason(c, h.approvalSvc.Reject)
}

// DeleteRequest 删除申请（软删除，编号保留）
// DELETE /api/v1/code-requests/:id
func (h *CodeRequestHandler) DeleteRequest(c *gin.Context) {
	id, ok := mustGetID(c, "申请")
	if !ok {
		return
	}

	var req dto.ReasonRequest
	// 请求体可选；分块传输时 ContentLength 为 -1，只能读到 EOF 才知道是否为空
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.requestSvc.Delete(c.Request.Context(), id, req.Reason, actor); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListAudit 申请审计记录
// GET /api/v1/code-requests/:id/audit
func (h *CodeRequestHandler) ListAudit(c *gin.Context) {
	id, ok := mustGetID(c, "申请")
	if !ok {
		return
	}

	records, err := h.requestSvc.ListAudit(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": records})
}

// ── 公共流程 ──

type transitionFunc func(ctx context.Context, id string, actor service.Actor) (*dto.CodeRequestResponse, error)

type reasonFunc func(ctx context.Context, id, reason string, actor service.Actor) (*dto.CodeRequestResponse, error)

func (h *CodeRequestHandler) transition(c *gin.Context, fn transitionFunc) {
	id, ok := mustGetID(c, "申请")
	if !ok {
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := fn(c.Request.Context(), id, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *CodeRequestHandler) withReason(c *gin.Context, fn reasonFunc) {
	id, ok := mustGetID(c, "申请")
	if !ok {
		return
	}

	var req dto.ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := fn(c.Request.Context(), id, req.Reason, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}
