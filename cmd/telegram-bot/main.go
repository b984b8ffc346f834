package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/futig/knowledge-console/internal/builder"
	"go.uber.org/zap"
)

func main() {
	env := flag.String("env", "local", "environment name, loads .env.<env> when present")
	flag.Parse()

	bot, logger, err := builder.BuildTelegramBot(*env)
	if err != nil {
		log.Fatal("Failed to build telegram bot:", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bot.Start(ctx); err != nil {
		logger.Error("telegram bot failed to start", zap.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	if err := bot.Stop(); err != nil {
		logger.Error("telegram bot did not stop cleanly", zap.Error(err))
	}
}
