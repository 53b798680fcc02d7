package middleware

import (
	"net/http"

	"pai-search-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ErrProcessRequest 是未预期错误时返回给客户端的统一文案。
const ErrProcessRequest = "Failed to process request"

// Recovery 捕获处理链中的 panic，记录日志后返回 500 JSON。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("[Recovery] 请求处理 panic",
					"requestID", RequestID(c),
					"path", c.Request.URL.Path,
					"panic", r,
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": ErrProcessRequest})
			}
		}()
		c.Next()
	}
}
