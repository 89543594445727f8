package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"valve-vault/backend/pkg/response"
)

const codeBodyTooLarge = 10005

// BodyLimit 请求体大小限制中间件
// 声明的 Content-Length 超限时直接拒绝；未声明长度的请求由 MaxBytesReader 截断，
// 之后的 JSON 绑定会失败并返回 400。maxBytes <= 0 时不限制
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, codeBodyTooLarge, "请求体过大")
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
