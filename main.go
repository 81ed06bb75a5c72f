package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"optobot/clients"
	"optobot/config"
	"optobot/internal/app"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()
	if cfg.Broker.SSID == "" {
		logger.Warn("BROKER_SSID not set, running in forced demo mode")
	}

	cl := clients.NewClients(logger, cfg)
	defer cl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot := app.NewBot(logger, cfg, cl)
	go bot.Run(ctx)

	reporter := app.NewReporter(logger, bot, cfg.Bot.ReportCron)
	if err := reporter.Start(); err != nil {
		logger.Error("failed to start daily reporter", zap.Error(err))
	}
	defer reporter.Stop()

	server := app.NewServer(logger, bot, cfg.Server.Port)
	server.Start()

	logger.Info("optobot ready, start the bot via the control API",
		zap.Int("port", cfg.Server.Port),
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("control server shutdown failed", zap.Error(err))
	}
}
