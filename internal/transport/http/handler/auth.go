package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-marketplace/internal/core/auth"
	"go-gin-marketplace/internal/feature/user"
	mdw "go-gin-marketplace/internal/transport/http/middleware"
	"go-gin-marketplace/internal/transport/http/view"
)

const (
	SignInPath       = "/auth/signin"
	pendingMessage   = "A request for this account is already in progress."
	rateLimitMessage = "Too many attempts. Please try again later."
	confirmedMessage = "Your email is confirmed. You can now sign in."
	signInPageTitle  = "Sign in"
	confirmPageTitle = "Confirm email"
)

// Auth 凭证表单、会话与邮箱确认
type Auth struct {
	Identity *user.Identity
	Guards   *user.Guards
	Sessions *auth.Sessions
	Log      *zap.Logger
}

// RequireSession 未登录跳转登录页
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !mdw.IdentityOf(c).Authenticated() {
			c.Redirect(http.StatusSeeOther, SignInPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (h *Auth) SignInForm(c *gin.Context) {
	if mdw.IdentityOf(c).Authenticated() {
		c.Redirect(http.StatusSeeOther, user.SettingsPath)
		return
	}
	c.HTML(http.StatusOK, view.PageSignIn, view.SignInPage{
		Base: base(c, signInPageTitle),
		Mode: user.ParseMode(c.Query("mode")).String(),
	})
}

// SignIn 表单提交；同一邮箱已有提交在途时直接拒绝
func (h *Auth) SignIn(c *gin.Context) {
	mode := user.ParseMode(c.PostForm("mode"))
	email := c.PostForm("email")
	page := view.SignInPage{Base: base(c, signInPageTitle), Mode: mode.String(), Email: email}

	out, err := h.Guards.Submit(c.Request.Context(), mode, email, c.PostForm("password"))
	switch {
	case errors.Is(err, user.ErrSubmitPending):
		mdw.ObserveAuth(mode.String(), "pending")
		page.Error = pendingMessage
		c.HTML(http.StatusOK, view.PageSignIn, page)
		return
	case err != nil:
		kind := user.KindOf(err)
		mdw.ObserveAuth(mode.String(), kind.String())
		h.Log.Info("credential submission rejected",
			zap.String("mode", mode.String()),
			zap.String("kind", kind.String()),
			zap.NamedError("cause", errors.Unwrap(err)),
		)
		page.Error = user.PublicMessage(err)
		c.HTML(http.StatusOK, view.PageSignIn, page)
		return
	}
	mdw.ObserveAuth(mode.String(), "ok")

	switch out.Kind {
	case user.OutcomeConfirmEmail:
		page.Message = out.Message
		c.HTML(http.StatusOK, view.PageSignIn, page)
	case user.OutcomeNavigate:
		if err := h.Sessions.Set(c.Writer, user.SessionIdentity(out.User)); err != nil {
			h.Log.Error("issue session failed", zap.Error(err))
			page.Error = user.KindUnavailable.Message()
			c.HTML(http.StatusOK, view.PageSignIn, page)
			return
		}
		h.Log.Info("user signed in", zap.String("user_id", out.User.ID))
		c.Redirect(http.StatusSeeOther, out.Destination)
	}
}

// TooManyAttempts 登录接口被限速时的页面
func (h *Auth) TooManyAttempts(c *gin.Context) {
	mdw.ObserveAuth(user.ParseMode(c.PostForm("mode")).String(), "rate_limited")
	c.HTML(http.StatusTooManyRequests, view.PageSignIn, view.SignInPage{
		Base:  base(c, signInPageTitle),
		Mode:  user.ParseMode(c.PostForm("mode")).String(),
		Email: c.PostForm("email"),
		Error: rateLimitMessage,
	})
}

func (h *Auth) SignOut(c *gin.Context) {
	h.Sessions.Clear(c.Writer)
	c.Redirect(http.StatusSeeOther, "/browse")
}

func (h *Auth) Confirm(c *gin.Context) {
	_, err := h.Identity.Confirm(c.Request.Context(), c.Query("token"))
	if err != nil {
		mdw.ObserveAuth("confirm", user.KindOf(err).String())
		h.Log.Info("confirm rejected", zap.String("kind", user.KindOf(err).String()), zap.NamedError("cause", errors.Unwrap(err)))
		c.HTML(http.StatusBadRequest, view.PageConfirm, view.ConfirmPage{
			Base:    base(c, confirmPageTitle),
			Message: user.PublicMessage(err),
		})
		return
	}
	mdw.ObserveAuth("confirm", "ok")
	c.HTML(http.StatusOK, view.PageConfirm, view.ConfirmPage{
		Base:    base(c, confirmPageTitle),
		OK:      true,
		Message: confirmedMessage,
	})
}
