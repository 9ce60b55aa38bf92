package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-gin-marketplace/internal/core/auth"
	"go-gin-marketplace/internal/core/cache"
	"go-gin-marketplace/internal/core/config"
	"go-gin-marketplace/internal/core/database"
	"go-gin-marketplace/internal/feature/listing"
	"go-gin-marketplace/internal/feature/user"
	"go-gin-marketplace/internal/repo"
	"go-gin-marketplace/internal/transport/http/router"
)

// App 三个二进制共用的依赖组装
type App struct {
	Cfg      *config.Config
	Log      *zap.Logger
	DB       *gorm.DB
	Cache    *cache.Cache // 未配置 redis 时为 nil
	JWT      *auth.JWTer
	Users    *repo.UserRepo
	Listings *repo.ListingRepo
	Identity *user.Identity
	Related  *listing.Related
}

func OpenDB(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	return database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Log:                l,
	})
}

func New(ctx context.Context, cfg *config.Config, l *zap.Logger) (*App, error) {
	db, err := OpenDB(cfg, l)
	if err != nil {
		return nil, err
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := repo.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}
	return Wire(ctx, cfg, l, db), nil
}

// Wire 基于已打开的 DB 组装其余依赖（测试直接传内存库）
func Wire(ctx context.Context, cfg *config.Config, l *zap.Logger, db *gorm.DB) *App {
	a := &App{Cfg: cfg, Log: l, DB: db}

	if cfg.Redis.Addr != "" {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := c.Ping(pctx); err != nil {
			// redis 不可用时退化为直接查库
			l.Warn("redis unavailable, cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = c.Close()
		} else {
			a.Cache = c
			l.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
		}
	}

	a.JWT = &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}
	a.Users = repo.NewUserRepo(db)
	a.Listings = repo.NewListingRepo(db)
	a.Identity = &user.Identity{
		Users:      a.Users,
		Tokens:     a.JWT,
		Mailer:     user.LogMailer{Log: l},
		BaseURL:    cfg.App.BaseURL,
		ConfirmTTL: time.Duration(cfg.JWT.ConfirmTTLMin) * time.Minute,
		Log:        l,
	}
	a.Related = listing.NewRelated(a.Listings, a.Cache, cfg.Market.RelatedLimit,
		time.Duration(cfg.Market.RelatedTTLSec)*time.Second)
	return a
}

func (a *App) WebDeps() router.Deps {
	return router.Deps{
		Log: a.Log,
		DB:  a.DB,
		JWT: a.JWT,
		Sessions: &auth.Sessions{
			JWT:    a.JWT,
			Cookie: a.Cfg.Session.CookieName,
			Secure: a.Cfg.Session.Secure,
		},
		Identity: a.Identity,
		Guards:   user.NewGuards(a.Identity),
		Users:    a.Users,
		Listings: a.Listings,
		Loader:   listing.NewLoader(a.Listings, a.Log),
		Related:  a.Related,
		Limits:   a.Cfg.Limits,
		PageSize: a.Cfg.Market.BrowsePageSize,
	}
}

func (a *App) AdminDeps() router.AdminDeps {
	return router.AdminDeps{
		Log:     a.Log,
		DB:      a.DB,
		JWT:     a.JWT,
		Users:   a.Users,
		Related: a.Related,
		Limits:  a.Cfg.Limits,
	}
}

func (a *App) Close() {
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
