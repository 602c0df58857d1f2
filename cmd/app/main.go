package main

import (
	"context"
	"errors"

	"orderdesk/internal/audit"
	"orderdesk/internal/config"
	"orderdesk/internal/db"
	"orderdesk/internal/handlers"
	"orderdesk/internal/logger"
	"orderdesk/internal/orderops"
	"orderdesk/internal/scans"
	"orderdesk/internal/security"
	"orderdesk/internal/shopify"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
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

	app, err := build(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	lambda.Start(app.Handle)
}

func build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*handlers.App, error) {
	if cfg.Tables.Sessions == "" || cfg.Tables.OAuthState == "" {
		return nil, errors.New("SESSIONS_TABLE and OAUTH_STATE_TABLE are required")
	}

	awsCfg, err := db.LoadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	ddb := dynamodb.NewFromConfig(awsCfg)

	cipher, err := security.LoadCipher(ctx, ssm.NewFromConfig(awsCfg), cfg.Token.KeyB64, cfg.Token.KeyParam)
	if err != nil {
		return nil, err
	}

	// Unset sinks stay nil interfaces so the service skips them.
	var sinks orderops.Sinks
	if cfg.Tables.Operations != "" {
		sinks.Recorder = audit.NewRecorder(ddb, cfg.Tables.Operations)
	}
	if cfg.Audit.SnapshotBucket != "" {
		sinks.Archiver = audit.NewArchiver(s3.NewFromConfig(awsCfg), cfg.Audit.SnapshotBucket)
	}
	if cfg.Audit.TopicARN != "" {
		sinks.Notifier = audit.NewNotifier(sns.NewFromConfig(awsCfg), cfg.Audit.TopicARN)
	}
	if cfg.Tables.Scans != "" {
		sinks.Scans = scans.NewStore(ddb, cfg.Tables.Scans)
	}
	log.Info("sinks configured",
		zap.Bool("operations", sinks.Recorder != nil),
		zap.Bool("snapshots", sinks.Archiver != nil),
		zap.Bool("notify", sinks.Notifier != nil),
		zap.Bool("scans", sinks.Scans != nil),
	)

	return handlers.NewApp(cfg, log,
		shopify.NewSessionStore(ddb, cfg.Tables.Sessions, cipher),
		shopify.NewStateStore(ddb, cfg.Tables.OAuthState),
		sinks,
	)
}
