package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/datalab/internal/config"
	"github.com/ashwinyue/datalab/internal/handler"
	"github.com/ashwinyue/datalab/internal/router"
	"github.com/ashwinyue/datalab/internal/service/dataset"
	"github.com/ashwinyue/datalab/internal/service/eventlog"
	"github.com/ashwinyue/datalab/internal/service/settings"
	"github.com/ashwinyue/datalab/internal/service/task"
)

func main() {
	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	if _, err := os.Stat(configPath); err != nil {
		configPath = ""
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置 Gin 模式
	gin.SetMode(cfg.Server.Mode)

	// 初始化数据目录服务
	settingsSvc, err := settings.NewService(cfg.Data.Dir)
	if err != nil {
		log.Fatalf("Failed to init settings store: %v", err)
	}
	events, err := eventlog.NewService(cfg.Data.Dir)
	if err != nil {
		log.Fatalf("Failed to init event log: %v", err)
	}

	// 初始化引擎
	coord := task.NewCoordinator()
	engine := dataset.NewService(cfg, coord, settingsSvc, events)
	handlers := handler.NewHandlers(engine)

	// 初始化路由
	r := router.SetupRouter(handlers)

	// 创建 HTTP 服务器
	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// 启动服务器
	go func() {
		log.Printf("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
