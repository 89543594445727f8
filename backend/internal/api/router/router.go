package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"valve-vault/backend/config"
	"valve-vault/backend/internal/api/handler"
	"valve-vault/backend/internal/api/middleware"
	"valve-vault/backend/pkg/jwt"
	"valve-vault/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 可为 nil：黑名单检查与限流随之关闭
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders(strings.HasPrefix(cfg.Server.BaseURL, "https://")))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if cfg.Metrics.Enabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// 写接口限流
	limit := middleware.RateLimit(rdb, cfg.Server.RateLimit.Limit, cfg.Server.RateLimit.Window)

	// ── API v1（全部需要认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, rdb))
	{
		// 当前操作人
		v1.GET("/auth/me", h.Auth.Me)
		v1.POST("/auth/logout", h.Auth.Logout)

		// 编码申请
		requests := v1.Group("/code-requests")
		{
			requests.GET("", h.CodeRequest.ListRequests)
			requests.GET("/:id", h.CodeRequest.GetRequest)
			requests.GET("/:id/audit", h.CodeRequest.ListAudit)

			requests.POST("", limit, h.CodeRequest.CreateRequest)
			requests.POST("/:id/claim", limit, h.CodeRequest.Claim)
			requests.POST("/:id/release", limit, h.CodeRequest.Release)
			requests.POST("/:id/force-release", limit, h.CodeRequest.ForceRelease) // 权限在 Service 层校验
			requests.POST("/:id/proposal", limit, h.CodeRequest.ProposeCode)
			requests.PUT("/:id/proposal", limit, h.CodeRequest.EditProposedCode)
			requests.POST("/:id/approve", limit, h.CodeRequest.Approve)
			requests.POST("/:id/reject", limit, h.CodeRequest.Reject)
			requests.DELETE("/:id", limit, h.CodeRequest.DeleteRequest)
		}

		// 物料目录
		items := v1.Group("/catalog-items")
		{
			items.GET("/:id", h.Catalog.GetItem)
			items.GET("/:id/addresses", h.Catalog.ListAddresses)
			items.GET("/:id/timeline", h.Catalog.GetTimeline)

			items.POST("", limit, h.Catalog.CreateItem)
			items.POST("/:id/addresses", limit, h.Catalog.AddAddress)
			items.POST("/:id/movements", limit, h.Catalog.RecordMovement)
		}

		// 盘点
		counts := v1.Group("/inventory-counts")
		{
			counts.GET("", h.Inventory.ListCounts)
			counts.GET("/:id/audit", h.Inventory.ListAudit)

			counts.POST("", limit, h.Inventory.RecordCount)
			counts.POST("/:id/adjustments", limit, h.Inventory.AdjustCount)
		}

		// 变更推送
		v1.GET("/ws", h.WS.Subscribe)
	}

	return r
}
