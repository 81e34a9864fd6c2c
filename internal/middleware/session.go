package middleware

import (
	"net/http"
	"strings"

	"github.com/cjones26/jackalope-web/internal/auth"

	"github.com/gin-gonic/gin"
)

// SessionRequired 保护需要登录的路由
// 没有有效会话时：页面请求重定向到未登录首页，接口请求返回 401
func SessionRequired(sessions *auth.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessions.Session() != nil {
			c.Next()
			return
		}
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "需要登录后访问"})
			c.Abort()
			return
		}
		c.Redirect(http.StatusSeeOther, "/")
		c.Abort()
	}
}
