package auth

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Identity 当前访问者；零值即匿名
type Identity struct {
	UserID string
	Email  string
	Role   string
}

var Anonymous = Identity{}

func (i Identity) Authenticated() bool { return i.UserID != "" }

func (i Identity) IsAdmin() bool { return i.Role == "admin" }

// OwnerKey listings.user_id 中存放的归属键（即邮箱）
func (i Identity) OwnerKey() string {
	if !i.Authenticated() {
		return ""
	}
	return i.Email
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}

// Sessions 负责会话 cookie 的签发、续期与注销
type Sessions struct {
	JWT    *JWTer
	Cookie string
	Secure bool
}

func (s *Sessions) Set(w http.ResponseWriter, id Identity) error {
	tok, err := s.JWT.Issue(id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.Cookie,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(s.JWT.TTL / time.Second),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.Cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Revalidate 按账号当前状态刷新身份；ok=false 表示账号已不可用
type Revalidate func(ctx context.Context, id Identity) (cur Identity, ok bool, err error)

// Resolve Bearer 优先，其次 cookie；cookie 剩余不足一半 TTL 时续期
func (s *Sessions) Resolve(w http.ResponseWriter, r *http.Request) Identity {
	id, _ := s.ResolveWith(w, r, nil)
	return id
}

// ResolveWith 同 Resolve，续期前先经 check 回查；账号不可用时清掉 cookie，
// check 出错时本次按匿名处理并返回错误
func (s *Sessions) ResolveWith(w http.ResponseWriter, r *http.Request, check Revalidate) (Identity, error) {
	if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, "Bearer ") {
		c, err := s.JWT.Parse(strings.TrimPrefix(ah, "Bearer "), PurposeSession)
		if err != nil {
			return Anonymous, nil
		}
		id, _, err := revalidate(r.Context(), check, c.Identity())
		return id, err
	}
	ck, err := r.Cookie(s.Cookie)
	if err != nil || ck.Value == "" {
		return Anonymous, nil
	}
	c, err := s.JWT.Parse(ck.Value, PurposeSession)
	if err != nil {
		s.Clear(w)
		return Anonymous, nil
	}
	id, ok, err := revalidate(r.Context(), check, c.Identity())
	switch {
	case err != nil:
		return Anonymous, err
	case !ok:
		s.Clear(w)
		return Anonymous, nil
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Sub(s.JWT.now()) < s.JWT.TTL/2 {
		_ = s.Set(w, id)
	}
	return id, nil
}

func revalidate(ctx context.Context, check Revalidate, id Identity) (Identity, bool, error) {
	if check == nil {
		return id, true, nil
	}
	cur, ok, err := check(ctx, id)
	if err != nil || !ok {
		return Anonymous, false, err
	}
	return cur, true, nil
}
