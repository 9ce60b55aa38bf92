package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"go-gin-marketplace/internal/core/auth"
	"go-gin-marketplace/internal/core/config"
	"go-gin-marketplace/internal/core/server"
	"go-gin-marketplace/internal/domain"
	"go-gin-marketplace/internal/feature/listing"
	"go-gin-marketplace/internal/feature/user"
	"go-gin-marketplace/internal/transport/http/handler"
	mdw "go-gin-marketplace/internal/transport/http/middleware"
	"go-gin-marketplace/internal/transport/http/view"
)

// Deps 站点与 API 的全部依赖，由 cmd 显式组装
type Deps struct {
	Log      *zap.Logger
	DB       *gorm.DB
	JWT      *auth.JWTer
	Sessions *auth.Sessions
	Identity *user.Identity
	Guards   *user.Guards
	Users    domain.UserRepository
	Listings domain.ListingRepository
	Loader   *listing.Loader
	Related  *listing.Related
	Limits   config.Limits
	PageSize int
}

func limitOrInf(rps float64) rate.Limit {
	if rps <= 0 {
		return rate.Inf
	}
	return rate.Limit(rps)
}

// commonMiddleware 两个 engine 共用的中间件链
func commonMiddleware(l *zap.Logger, lim config.Limits) []gin.HandlerFunc {
	if lim.Concurrency <= 0 {
		lim.Concurrency = 300
	}
	if lim.MaxBodyMB <= 0 {
		lim.MaxBodyMB = 16
	}
	if lim.TimeoutSec <= 0 {
		lim.TimeoutSec = 10
	}
	return []gin.HandlerFunc{
		mdw.RequestID(),
		mdw.RateLimit(limitOrInf(lim.RPS), max(lim.Burst, 1)),
		mdw.ConcurrencyLimit(lim.Concurrency),
		mdw.MaxBodyBytes(lim.MaxBodyMB << 20),
		mdw.Timeout(time.Duration(lim.TimeoutSec) * time.Second),
		mdw.Metrics(),
		mdw.AccessLog(l),
	}
}

func health(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) }

// NewWebEngine 用户端：HTML 页面 + /api/v1 + /metrics
func NewWebEngine(d Deps) (*gin.Engine, error) {
	r := server.NewRouter(d.Log)
	tmpl, err := view.Templates()
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	r.Use(commonMiddleware(d.Log, d.Limits)...)
	r.Use(mdw.Session(d.Sessions, d.Users))

	r.GET("/health", health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	pages := &handler.Pages{
		Listings: d.Listings,
		Loader:   d.Loader,
		Related:  d.Related,
		Log:      d.Log,
		PageSize: d.PageSize,
	}
	authH := &handler.Auth{
		Identity: d.Identity,
		Guards:   d.Guards,
		Sessions: d.Sessions,
		Log:      d.Log,
	}

	r.GET("/", pages.Home)
	r.GET(listing.BrowsePath, pages.Browse)
	r.GET("/listing/:id", pages.Listing)

	owner := r.Group("", handler.RequireSession())
	owner.GET(user.SettingsPath, pages.Settings)
	owner.POST("/listing/:id/:action", pages.Manage)

	r.GET(handler.SignInPath, authH.SignInForm)
	r.POST(handler.SignInPath,
		mdw.RateLimitPerIP(limitOrInf(d.Limits.AuthRPS), max(d.Limits.AuthBurst, 1), authH.TooManyAttempts),
		authH.SignIn,
	)
	r.POST("/auth/signout", authH.SignOut)
	r.GET("/auth/confirm", authH.Confirm)

	api := r.Group("/api/v1", mdw.SimpleRecovery(d.Log))
	mountAPI(api, d)

	return r, nil
}
