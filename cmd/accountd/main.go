package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.accountd.dev/accountd"
	"go.accountd.dev/accountd/config"
	"go.accountd.dev/accountd/core"
	"go.uber.org/zap"

	_ "go.accountd.dev/accountd/service"
)

func main() {
	cfg, err := config.NewManager()
	if err != nil {
		core.NewLogger(nil).Fatal("Failed to load config", zap.Error(err))
	}

	logger := core.NewLogger(cfg)

	if err = cfg.Init(); err != nil {
		logger.Fatal("Failed to initialize config", zap.Error(err))
	}

	logger.SetLevelFromConfig()

	ctx, err := core.NewContext(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create context", zap.Error(err))
	}

	accountd.NewActiveApp(ctx)

	if err = accountd.Init(); err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}

	if err = accountd.Start(); err != nil {
		logger.Fatal("Failed to start", zap.Error(err))
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	accountd.Shutdown(accountd.ActiveApp(), logger.Logger)
}
