package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lk2023060901/chat-proxy/internal/conf"
	"github.com/lk2023060901/chat-proxy/internal/pkg/injector"
	"github.com/lk2023060901/chat-proxy/internal/pkg/logger"
)

var (
	configFile = flag.String("config", "config.yaml", "config file path")
)

func main() {
	flag.Parse()

	// .env 只补充未设置的环境变量
	envFile, explicit := os.LookupEnv("ENV_FILE")
	if !explicit || envFile == "" {
		envFile = ".env"
	}
	envErr := godotenv.Load(envFile)
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		panic("failed to load env file: " + envErr.Error())
	}

	// Load configuration
	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.InitGlobal(&config.Log); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	switch {
	case envErr == nil:
		logger.Debug("env file loaded", zap.String("path", envFile))
	case explicit:
		logger.Warn("env file not found", zap.String("path", envFile))
	}

	logger.Info("config loaded successfully",
		zap.String("http_addr", config.Server.HTTPAddr()),
		zap.String("credential_source", config.Chat.Credential.Source),
		zap.String("prompt_source", config.Chat.Prompt.Source),
	)

	app, cleanup, err := injector.InitializeApp(config, logger.L())
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		return
	}
	logger.Info("server exited")
}
