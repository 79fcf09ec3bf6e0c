package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"

	_ "github.com/vatsal3003/snapnorm/internal/codec/webp"
	"github.com/vatsal3003/snapnorm/internal/config"
	"github.com/vatsal3003/snapnorm/internal/logger"
	"github.com/vatsal3003/snapnorm/internal/normalize"
	"github.com/vatsal3003/snapnorm/internal/rabbitmq"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg.LogLevel, cfg.LogJSON)

	normalizer, err := normalize.New(cfg.Normalize, afero.NewOsFs())
	if err != nil {
		logger.Error("failed to create normalizer", "error", err)
		os.Exit(1)
	}

	// Connect to RabbitMQ
	mqClient, err := rabbitmq.NewRabbitMQClient(cfg.RabbitMQURL, cfg.QueueName, cfg.ResultQueueName)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer mqClient.Close()

	processor := normalize.NewProcessor(normalizer, mqClient, logger.GetDefault())

	logger.Info("starting worker",
		"queue", cfg.QueueName,
		"codec", cfg.Normalize.Codec,
		"max_dimension", cfg.Normalize.MaxDimension,
		"storage_root", cfg.Normalize.StorageRoot,
	)

	// Graceful shutdown
	stopChan := make(chan struct{})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		close(stopChan)
	}()

	if err := mqClient.ConsumeJobs(processor.ProcessJob, cfg.Workers, stopChan); err != nil {
		logger.Error("failed to consume jobs", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
