package handler

import (
	"github.com/gin-gonic/gin"

	"valve-vault/backend/internal/service"
	"valve-vault/backend/pkg/response"
)

// 认证中间件注入的上下文键
const (
	CtxUserID   = "user_id"
	CtxUserName = "user_name"
	CtxRole     = "role"
	CtxTokenJTI = "token_jti"
	CtxTokenExp = "token_exp"
)

// MustGetActor 从 Gin 上下文中组装当前操作人。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetActor(c *gin.Context) (service.Actor, bool) {
	id := c.GetString(CtxUserID)
	if id == "" {
		response.Unauthorized(c, 10002, "未认证")
		return service.Actor{}, false
	}
	return service.Actor{
		ID:   id,
		Name: c.GetString(CtxUserName),
		Role: c.GetString(CtxRole),
	}, true
}

// mustGetID 读取路径参数 id，为空时写入 400 响应
func mustGetID(c *gin.Context, label string) (string, bool) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, label+"ID不能为空")
		return "", false
	}
	return id, true
}
