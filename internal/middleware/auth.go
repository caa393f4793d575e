// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"edu-agent-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 令牌由上游统一认证服务签发，这里只做校验并把声明信息放进上下文；
// 后续处理器从 claims 取 userID 与 companyID，所有查询以 companyID 限定租户。
func AuthMiddleware(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请求未包含授权头"})
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的授权头格式"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效或已过期的 token"})
			return
		}

		c.Set("claims", claims)
		c.Next()
	}
}

// GetClaims 从 Gin 上下文取出认证声明。
// 必须在 AuthMiddleware 之后的处理器里调用。
func GetClaims(c *gin.Context) *token.CustomClaims {
	claimsValue, _ := c.Get("claims")
	claims, _ := claimsValue.(*token.CustomClaims)
	return claims
}
