package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"go-gin-marketplace/internal/core/auth"
	resp "go-gin-marketplace/internal/transport/http/response"
)

// AuthJWT 仅接受 Bearer 会话 token；users 非空时按库中账号刷新身份与角色，
// requireRole 非空时校验角色
func AuthJWT(j *auth.JWTer, users UserLookup, requireRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "missing token"))
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "), auth.PurposeSession)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "invalid token"))
			return
		}
		id, ok, err := current(c.Request.Context(), users, claims.Identity())
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeServerError, ""))
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "account disabled"))
			return
		}
		if requireRole != "" && id.Role != requireRole {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeForbidden, "forbidden"))
			return
		}
		c.Set("claims", claims)
		bindIdentity(c, id)
		c.Next()
	}
}
