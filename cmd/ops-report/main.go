package main

import (
	"context"
	"errors"
	"time"

	"orderdesk/internal/audit"
	"orderdesk/internal/config"
	"orderdesk/internal/db"
	"orderdesk/internal/logger"
	"orderdesk/internal/report"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer func() { _ = log.Sync() }()

	job, err := build(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}

	lambda.Start(func(ctx context.Context, _ events.CloudWatchEvent) (report.Summary, error) {
		return job.Run(ctx)
	})
}

func build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*report.Job, error) {
	if cfg.Tables.Operations == "" || cfg.Report.Bucket == "" {
		return nil, errors.New("OPERATIONS_TABLE and ANALYTICS_BUCKET are required")
	}
	loc, err := time.LoadLocation(cfg.Report.Timezone)
	if err != nil {
		return nil, err
	}

	awsCfg, err := db.LoadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}

	job := &report.Job{
		Source:   audit.NewRecorder(dynamodb.NewFromConfig(awsCfg), cfg.Tables.Operations),
		Writer:   report.NewWriter(s3.NewFromConfig(awsCfg), cfg.Report.Bucket, cfg.Report.Prefix),
		Location: loc,
		DaysBack: cfg.Report.DaysBack,
		Log:      log,
	}
	if cfg.Report.RepairEnabled() {
		job.Repairer = report.NewRepairer(athena.NewFromConfig(awsCfg),
			cfg.Report.AthenaDatabase,
			cfg.Report.AthenaTable,
			cfg.Report.AthenaWorkgroup,
			cfg.Report.AthenaOutput,
			log,
		)
	}
	return job, nil
}
