package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"valve-vault/backend/internal/service"
	"valve-vault/backend/pkg/response"
)

// TokenRevoker 吊销 Token（由 pkg/redis.Client 实现）
type TokenRevoker interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthHandler 当前操作人相关接口
// 登录由外部身份服务负责，这里只处理已签发的 Token
type AuthHandler struct {
	perms   service.PermissionResolver
	revoker TokenRevoker
	logger  *zap.Logger
}

// NewAuthHandler 创建 AuthHandler，revoker 可为 nil（无 Redis 时登出不吊销 Token）
func NewAuthHandler(perms service.PermissionResolver, revoker TokenRevoker, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{perms: perms, revoker: revoker, logger: logger}
}

// Me 获取当前操作人及其授权动作
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	response.OK(c, gin.H{
		"id":          actor.ID,
		"name":        actor.Name,
		"role":        actor.Role,
		"permissions": service.AllowedActions(h.perms, actor),
	})
}

// Logout 吊销当前 Token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if _, ok := MustGetActor(c); !ok {
		return
	}

	jti := c.GetString(CtxTokenJTI)
	if h.revoker == nil || jti == "" {
		response.OK(c, nil)
		return
	}

	var ttl time.Duration
	if v, exists := c.Get(CtxTokenExp); exists {
		if exp, ok := v.(time.Time); ok {
			ttl = time.Until(exp)
		}
	}

	if err := h.revoker.BlacklistToken(c.Request.Context(), jti, ttl); err != nil {
		h.logger.Error("吊销 Token 失败", zap.String("jti", jti), zap.Error(err))
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}
