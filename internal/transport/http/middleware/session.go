package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"go-gin-marketplace/internal/core/auth"
	"go-gin-marketplace/internal/domain"
)

const (
	KeyIdentity = "identity"
	KeyUserID   = "userId"
	KeyRole     = "role"
)

// UserLookup 按 ID 回查账号；封禁与角色变更对已签发的 token 即时生效
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// current 以库中账号为准刷新身份；账号已不存在时 ok=false
func current(ctx context.Context, users UserLookup, id auth.Identity) (cur auth.Identity, ok bool, err error) {
	if users == nil || !id.Authenticated() {
		return id, true, nil
	}
	u, err := users.FindByID(ctx, id.UserID)
	if err != nil {
		return auth.Anonymous, false, err
	}
	if u == nil {
		return auth.Anonymous, false, nil
	}
	return auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}, true, nil
}

func bindIdentity(c *gin.Context, id auth.Identity) {
	c.Set(KeyIdentity, id)
	if id.Authenticated() {
		c.Set(KeyUserID, id.UserID)
		c.Set(KeyRole, id.Role)
	}
	c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
}

// Session 每个请求解析一次身份（Bearer 或会话 cookie），匿名也放行。
// users 非空时以库中账号为准：封禁/删除即时失效并清掉 cookie，角色变更即时生效
func Session(s *auth.Sessions, users UserLookup) gin.HandlerFunc {
	check := func(ctx context.Context, id auth.Identity) (auth.Identity, bool, error) {
		return current(ctx, users, id)
	}
	return func(c *gin.Context) {
		id, err := s.ResolveWith(c.Writer, c.Request, check)
		if err != nil {
			_ = c.Error(err)
		}
		bindIdentity(c, id)
		c.Next()
	}
}

// IdentityOf 读取当前请求身份；未经过 Session/AuthJWT 时为匿名
func IdentityOf(c *gin.Context) auth.Identity {
	if v, ok := c.Get(KeyIdentity); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.IdentityFrom(c.Request.Context())
}
