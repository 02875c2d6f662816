package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/feichai0017/doc-converter/config"
	"github.com/feichai0017/doc-converter/internal/service/convert"
	"github.com/feichai0017/doc-converter/pkg/logger"
	"github.com/feichai0017/doc-converter/pkg/worker"
)

func main() {
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg := config.GetAppConfig()

	convertService, err := convert.GetService(log)
	if err != nil {
		log.Error("Failed to create convert service", logger.Error(err))
		os.Exit(1)
	}

	workerCfg := &worker.Config{
		RedisAddr:   cfg.RedisAddr,
		RedisDB:     cfg.RedisDB,
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
	}

	convertWorker, err := worker.NewConvertWorker(workerCfg, convertService, log)
	if err != nil {
		log.Error("Failed to create convert worker", logger.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := convertWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker...")
	convertWorker.Stop()
	log.Info("Worker stopped")
}
