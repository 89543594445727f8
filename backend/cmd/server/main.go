package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"valve-vault/backend/config"
	"valve-vault/backend/internal/api/handler"
	"valve-vault/backend/internal/api/router"
	"valve-vault/backend/internal/repository"
	"valve-vault/backend/internal/service"
	"valve-vault/backend/pkg/database"
	"valve-vault/backend/pkg/jwt"
	applogger "valve-vault/backend/pkg/logger"
	"valve-vault/backend/pkg/notify"
	"valve-vault/backend/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.Duration("claim_ttl", cfg.Workflow.ClaimTTL),
	)

	// 后台任务（通知转发、过期认领扫描）随 appCtx 结束
	appCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单、限流与跨实例通知将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. 变更通知：本地 Hub 负责推送；有 Redis 时经频道广播到所有实例
	hub := notify.NewHub(cfg.Notify.Buffer, logger)
	var notifier notify.Notifier = hub
	if rdb != nil {
		if err := notify.Relay(appCtx, rdb, cfg.Notify.Channel, hub, logger); err != nil {
			logger.Warn("订阅变更频道失败，仅推送本实例事件", zap.Error(err))
		} else {
			notifier = notify.NewRedisNotifier(rdb, cfg.Notify.Channel, logger)
		}
	}

	// 6. 初始化 JWT 管理器与权限
	jwtMgr := jwt.NewManager(&cfg.Auth)

	perms, err := service.NewPermissionResolver(&cfg.Permissions)
	if err != nil {
		logger.Fatal("权限策略加载失败", zap.Error(err))
	}

	// 7. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, perms, notifier, logger)
	var revoker handler.TokenRevoker
	if rdb != nil {
		revoker = rdb
	}
	h := handler.NewHandler(svc, revoker, hub, cfg.Server.CORS.AllowOrigins, logger)

	// 8. 过期认领扫描（claim_ttl = 0 时关闭）
	if cfg.Workflow.ClaimTTL > 0 {
		go sweepExpiredClaims(appCtx, svc.CodeRequest, cfg.Workflow.SweepInterval, logger)
	}

	// 9. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 10. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     engine,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout 会切断长连接的 WebSocket，由 ws 的 ping/pong 控制存活
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 11. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	stop()

	// 关闭数据库连接
	if sqlDB != nil {
		sqlDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// sweepExpiredClaims 周期性释放超时未处理的认领
func sweepExpiredClaims(ctx context.Context, svc service.CodeRequestService, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			// 释放数量由 Service 记录
			if _, err := svc.ReleaseExpiredClaims(ctx, now); err != nil {
				logger.Error("释放过期认领失败", zap.Error(err))
			}
		}
	}
}
