package main

import (
	"context"
	"fmt"

	"fulfillment-workers/internal/common/audit"
	"fulfillment-workers/internal/common/automation"
	"fulfillment-workers/internal/common/aws"
	"fulfillment-workers/internal/common/config"
	"fulfillment-workers/internal/common/database"
	"fulfillment-workers/internal/common/lock"
	"fulfillment-workers/internal/common/logger"
	"fulfillment-workers/internal/common/mail"
	"fulfillment-workers/internal/common/observability"
	"fulfillment-workers/internal/common/salesforce"
	"fulfillment-workers/internal/common/storage"
	"fulfillment-workers/internal/fulfillment"
	"fulfillment-workers/internal/repository"
)

type wiring struct {
	fulfillment.Dependencies
	sourceBucket *storage.MinIOBucket
}

func buildDependencies(
	ctx context.Context,
	cfg *config.Config,
	pg *database.PostgresClient,
	redisClient *database.RedisClient,
	esClient *database.ElasticsearchClient,
	obs *observability.Observability,
	log logger.Logger,
) (*wiring, error) {
	integrations := cfg.Integrations

	transport, err := emailTransport(ctx, cfg)
	if err != nil {
		return nil, err
	}
	notifier := mail.NewNotifier(transport, integrations.Email.FromAddress, integrations.Email.FromName, log)

	var alerter automation.Alerter
	if integrations.AWS.SNS.Enabled {
		sns, err := aws.NewSNSClient(ctx, aws.Credentials{Region: integrations.AWS.Region}, integrations.AWS.SNS.TopicARN)
		if err != nil {
			return nil, err
		}
		alerter = sns
	}

	source, err := storage.NewMinIOBucket(integrations.Storage.Source, true)
	if err != nil {
		return nil, fmt.Errorf("source bucket: %w", err)
	}
	var destination storage.Store = source
	if !cfg.App.IsDevelopment() {
		destination, err = storage.NewMinIOBucket(integrations.Storage.Destination, false)
		if err != nil {
			return nil, fmt.Errorf("destination bucket: %w", err)
		}
	}

	var recorder audit.Recorder = audit.NopRecorder{}
	if esClient != nil {
		recorder = audit.NewElasticsearchRecorder(esClient.Client, cfg.Database.Elasticsearch.AuditIndex, log)
	}

	gateway := automation.NewGateway(
		automation.NewExecRunner(integrations.Automation, log),
		notifier,
		alerter,
		cfg.Fulfillment.ITSEmail,
		log,
	)

	locker := lock.NewRedisLocker(redisClient.Client, config.GetDuration(cfg.Fulfillment.LockTTL), log)

	return &wiring{
		Dependencies: fulfillment.Dependencies{
			Applications:  repository.NewApplicationRepository(pg.DB),
			Statuses:      repository.NewStatusStore(pg.DB),
			Notifier:      notifier,
			Automation:    gateway,
			Leads:         salesforce.NewClient(integrations.Salesforce, cfg.App.IsProduction(), log),
			Files:         storage.NewTransfer(source, destination, log),
			Audit:         recorder,
			Guard:         lock.NewGuard(locker, log),
			Observability: obs,
		},
		sourceBucket: source,
	}, nil
}

func newCoordinator(cfg *config.Config, w *wiring, log logger.Logger) *fulfillment.Coordinator {
	return fulfillment.NewCoordinator(w.Dependencies, fulfillment.Settings{
		AdminEmail:        cfg.Fulfillment.AdminEmail,
		ITSEmail:          cfg.Fulfillment.ITSEmail,
		AbortOnTrackError: cfg.Fulfillment.AbortOnTrackError,
	}, log)
}

// emailTransport delivers through the local SMTP relay in development and SES elsewhere.
func emailTransport(ctx context.Context, cfg *config.Config) (mail.Transport, error) {
	if cfg.App.IsDevelopment() {
		return mail.NewSMTPTransport(cfg.Integrations.SMTP), nil
	}

	ses := cfg.Integrations.AWS.SES
	region := ses.Region
	if region == "" {
		region = cfg.Integrations.AWS.Region
	}
	client, err := aws.NewSESClient(ctx, aws.Credentials{
		Region:    region,
		AccessKey: ses.AccessKey,
		SecretKey: ses.SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return mail.NewSESTransport(client), nil
}
