package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-gin-marketplace/internal/core/auth"
	"go-gin-marketplace/internal/core/config"
	"go-gin-marketplace/internal/core/server"
	"go-gin-marketplace/internal/domain"
	"go-gin-marketplace/internal/feature/listing"
	"go-gin-marketplace/internal/feature/user"
	mdw "go-gin-marketplace/internal/transport/http/middleware"
)

type AdminDeps struct {
	Log     *zap.Logger
	DB      *gorm.DB
	JWT     *auth.JWTer
	Users   domain.UserRepository
	Related *listing.Related
	Limits  config.Limits
}

func NewAdminEngine(d AdminDeps) *gin.Engine {
	r := server.NewRouter(d.Log)
	r.Use(commonMiddleware(d.Log, d.Limits)...)

	r.GET("/health", health)

	// 管理端 v1（统一要求 admin 角色）
	admin := r.Group("/admin/v1", mdw.SimpleRecovery(d.Log), mdw.AuthJWT(d.JWT, d.Users, user.RoleAdmin))
	MountAdminActions(admin, d)

	return r
}
