package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"

	"resume-ner-go/internal/api/handler"
	"resume-ner-go/internal/api/middleware"
	"resume-ner-go/internal/api/router"
	"resume-ner-go/internal/config"
	"resume-ner-go/internal/logger"
	"resume-ner-go/internal/outbox"
	"resume-ner-go/internal/processor"
	"resume-ner-go/internal/storage"
	"resume-ner-go/internal/tracing"
)

const serviceName = "resume-ner-go"

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file (默认 $RESUME_CONFIG 或 ./config.yaml)")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", configPath).Msg("加载配置失败")
	}
	initLogger(cfg)
	logger.Info().Str("path", configPath).Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitTracerProvider(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化链路追踪失败")
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer storageManager.Close()

	var relay *outbox.MessageRelay
	if cfg.Outbox.Enabled && storageManager.MySQL != nil && storageManager.RabbitMQ != nil {
		relay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ, cfg.Outbox)
		relay.Start(ctx)
	} else {
		logger.Warn().Bool("enabled", cfg.Outbox.Enabled).Msg("outbox 中继未启动")
	}

	components, err := processor.BuildComponents(ctx, cfg, storageManager)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化处理组件失败")
	}
	resumeService, err := processor.NewResumeService(components, processor.WithConfig(cfg))
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化简历服务失败")
	}

	serverTracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.Default(
		serverTracer,
		server.WithHostPorts(cfg.Server.Address),
		server.WithReadTimeout(time.Duration(cfg.Server.ReadTimeoutSeconds)*time.Second),
		server.WithWriteTimeout(time.Duration(cfg.Server.WriteTimeoutSeconds)*time.Second),
		server.WithExitWaitTime(time.Duration(cfg.Server.ExitWaitSeconds)*time.Second),
		server.WithMaxRequestBodySize((cfg.Upload.MaxSizeMB+1)<<20),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg), middleware.RequestID(), middleware.AccessLog())

	router.RegisterRoutes(h, handler.NewResumeHandler(resumeService), middleware.APIKeyAuth(cfg.Auth))
	logger.Info().Str("address", cfg.Server.Address).Bool("auth", len(cfg.Auth.APIKeys) > 0).Msg("HTTP 服务器启动中")

	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	if relay != nil {
		relay.Stop()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("关闭链路追踪失败")
	}
	logger.Info().Msg("优雅退出完成")
}

// initLogger 初始化全局日志，并让 hertz 的 hlog 复用同一个 zerolog 实例
func initLogger(cfg *config.Config) {
	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
		Service:      serviceName,
	})
	hlog.SetLogger(hertzadapter.From(logger.Logger))
	if cfg.Logger.Level == "debug" {
		hlog.SetLevel(hlog.LevelDebug)
	}
}
