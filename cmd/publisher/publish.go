package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/vatsal3003/snapnorm/internal/config"
	"github.com/vatsal3003/snapnorm/internal/logger"
	"github.com/vatsal3003/snapnorm/internal/rabbitmq"
	"github.com/vatsal3003/snapnorm/internal/watch"
	"github.com/vatsal3003/snapnorm/pkg/models"
)

func main() {
	var (
		artifactID string
		watchDir   string
	)

	cmd := &cobra.Command{
		Use:           "publisher [imagePath...]",
		Short:         "Publish image normalization jobs to RabbitMQ",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && watchDir == "" {
				return fmt.Errorf("pass at least one image path or --watch")
			}
			if artifactID != "" && len(args) > 1 {
				return fmt.Errorf("--id can only be used with a single image")
			}

			cfg, err := config.Load("")
			if err != nil {
				return err
			}
			logger.Setup(cfg.LogLevel, cfg.LogJSON)

			// Connect to RabbitMQ
			mqClient, err := rabbitmq.NewRabbitMQClient(cfg.RabbitMQURL, cfg.QueueName, "")
			if err != nil {
				return err
			}
			defer mqClient.Close()

			for _, imagePath := range args {
				abs, err := filepath.Abs(imagePath)
				if err != nil {
					return fmt.Errorf("failed to resolve %s: %w", imagePath, err)
				}

				job := models.NewNormalizeJob(abs, artifactID)
				if err := mqClient.PublishJob(job); err != nil {
					return err
				}
				fmt.Printf("Published normalize job %s for image %s (artifact %s)\n", job.JobID, abs, job.ArtifactID)
			}

			if watchDir == "" {
				return nil
			}
			return watchAndPublish(cmd.Context(), cfg, watchDir, mqClient)
		},
	}
	cmd.Flags().StringVar(&artifactID, "id", "", "artifact id to use (default: new UUID)")
	cmd.Flags().StringVar(&watchDir, "watch", "", "publish a job for every new image dropped into this directory")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		logger.Error("publisher failed", "error", err)
		os.Exit(1)
	}
}

func watchAndPublish(ctx context.Context, cfg *config.Config, dir string, mqClient *rabbitmq.RabbitMQClient) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if err := cfg.CheckWatchDir(abs); err != nil {
		return err
	}

	w, err := watch.New(abs, afero.NewOsFs(), cfg.WatchCacheSize, func(job models.NormalizeJob) error {
		if err := mqClient.PublishJob(job); err != nil {
			return err
		}
		logger.Info("published job", "job_id", job.JobID, "source", job.SourcePath, "artifact_id", job.ArtifactID)
		return nil
	}, logger.GetDefault())
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
