package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"qless-server/internal/core/auth"
	"qless-server/internal/domain"
	resp "qless-server/internal/transport/http/response"
)

// AuthJWT 解析会话令牌并做角色等级门禁。令牌过期即会话过期
// （Parse 失败 → 401，等价于强制登出）；等级不够 → 403。
// minRole 为空字符串时只要求已登录。
func AuthJWT(j *auth.JWTer, minRole domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "missing token"))
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "invalid or expired token"))
			return
		}
		if minRole != "" && !claims.Role.AtLeast(minRole) {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeForbidden, "insufficient role"))
			return
		}
		c.Set("userId", claims.UID)
		c.Set("role", string(claims.Role))
		c.Next()
	}
}
