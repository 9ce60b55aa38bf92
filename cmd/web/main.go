package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"go-gin-marketplace/internal/app"
	"go-gin-marketplace/internal/core/config"
	"go-gin-marketplace/internal/core/logger"
	"go-gin-marketplace/internal/core/server"
	"go-gin-marketplace/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfgPath := pflag.StringP("config", "c", "", "config file (default $CONFIG_PATH or ./configs/config.local.yaml)")
	pflag.Parse()

	cfg := config.MustLoad(*cfgPath)
	log, cleanup := logger.New(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log)()
	if cfg.App.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer a.Close()

	r, err := router.NewWebEngine(a.WebDeps())
	if err != nil {
		log.Fatal("build router failed", zap.Error(err))
	}

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	baseURL := server.HumanURL(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	log.Info("marketplace web starting",
		zap.String("addr", addr),
		zap.String("open", baseURL+"/browse"),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1"),
		zap.Bool("cache", a.Cache != nil),
	)

	// 异步启动
	go func() {
		if err := server.StartHTTP(srv, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("marketplace web start FAILED", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	log.Info("marketplace web stopped gracefully")
}
