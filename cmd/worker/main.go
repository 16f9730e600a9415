package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"resume-optimizer/internal/bootstrap"
	"resume-optimizer/internal/shared/config"
	"resume-optimizer/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.SetLevel(cfg.LogLevel)
	if cfg.GenerationQueueURL == "" {
		log.Fatal("GENERATION_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	c := &consumer{
		client:     sqs.NewFromConfig(awsCfg),
		queueURL:   cfg.GenerationQueueURL,
		proc:       app.Payments,
		slots:      max(1, cfg.WorkerConcurrency),
		visibility: cfg.WorkerVisibility,
	}
	if !c.run(ctx, cfg.WorkerShutdownTimeout) {
		os.Exit(1)
	}
}
