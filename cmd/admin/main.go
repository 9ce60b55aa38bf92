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
	cfgPath := pflag.StringP("config", "c", "", "config file")
	pflag.Parse()

	cfg := config.MustLoad(*cfgPath)
	log, cleanup := logger.New(cfg.Log)
	defer cleanup()
	if cfg.App.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer a.Close()

	r := router.NewAdminEngine(a.AdminDeps())

	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(addr, r, 5*time.Second, 10*time.Second, 60*time.Second)

	// 启动前打印可点击地址
	baseURL := server.HumanURL(cfg.App.Admin.Host, cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("addr", addr),
		zap.String("health", baseURL+"/health"),
		zap.String("admin_v1", baseURL+"/admin/v1"),
	)

	go func() {
		if err := server.StartHTTP(srv, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("admin api start FAILED", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("admin api stopped gracefully")
}
