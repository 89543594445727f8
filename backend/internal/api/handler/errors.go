package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"valve-vault/backend/internal/service"
	pkgerrors "valve-vault/backend/pkg/errors"
	"valve-vault/backend/pkg/response"
)

// ── 业务错误码 ──
// 2xxxx 编码申请，3xxxx 物料目录，4xxxx 盘点

const (
	codeValidation     = 10001
	codeForbidden      = 10003
	codeConflict       = 10006
	codeNotFound       = 10007
	codeAlreadyClaimed = 20002
)

var errorCodes = []struct {
	err  error
	code int
}{
	{service.ErrRequestNotFound, 20001},
	{service.ErrWrongState, 20003},
	{service.ErrNotHolder, 20004},
	{service.ErrInvalidCodeFormat, 20005},
	{service.ErrDuplicateCode, 20006},
	{service.ErrEmptyReason, 20007},
	{service.ErrEmptyDescription, 20008},
	{service.ErrInvalidWeight, 20009},
	{service.ErrItemNotFound, 30001},
	{service.ErrAddressItemMismatch, 30002},
	{service.ErrInvalidMovementAmount, 30003},
	{service.ErrCountNotFound, 40001},
	{service.ErrAddressNotFound, 40002},
	{service.ErrInvalidPassNumber, 40003},
	{service.ErrPassOutOfOrder, 40004},
	{service.ErrDuplicateCountPass, 40005},
	{service.ErrNegativeQuantity, 40006},
	{service.ErrPermissionDenied, codeForbidden},
}

func businessCode(err error, fallback int) int {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return fallback
}

// handleServiceError 按错误分类映射 HTTP 状态码，未分类错误统一 500
func handleServiceError(c *gin.Context, err error) {
	var claimed *pkgerrors.AlreadyClaimedError
	if errors.As(err, &claimed) {
		response.ErrorWithData(c, http.StatusConflict, codeAlreadyClaimed, claimed.Error(),
			gin.H{"holder": gin.H{"id": claimed.Holder, "name": claimed.HolderName}})
		return
	}

	switch pkgerrors.Kind(err) {
	case pkgerrors.ErrValidation:
		response.BadRequest(c, businessCode(err, codeValidation), err.Error())
	case pkgerrors.ErrConflict:
		response.Conflict(c, businessCode(err, codeConflict), err.Error())
	case pkgerrors.ErrForbidden:
		response.Forbidden(c, businessCode(err, codeForbidden), err.Error())
	case pkgerrors.ErrNotFound:
		response.NotFound(c, businessCode(err, codeNotFound), err.Error())
	default:
		response.InternalError(c)
	}
}
