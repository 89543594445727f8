package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 请求日志中间件
// 5xx 记 Error，4xx 记 Warn，其余 Info；/health 与 /metrics 降为 Debug
func Logger(logger *zap.Logger) gin.HandlerFunc {
	quiet := map[string]struct{}{"/health": {}, "/metrics": {}}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		if uid := c.GetString("user_id"); uid != "" {
			fields = append(fields, zap.String("user_id", uid))
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, zap.String("errors", errs.String()))
		}

		level := zapcore.InfoLevel
		switch {
		case status >= 500:
			level = zapcore.ErrorLevel
		case status >= 400:
			level = zapcore.WarnLevel
		default:
			if _, ok := quiet[c.Request.URL.Path]; ok {
				level = zapcore.DebugLevel
			}
		}

		if ce := logger.Check(level, "HTTP 请求"); ce != nil {
			ce.Write(fields...)
		}
	}
}
