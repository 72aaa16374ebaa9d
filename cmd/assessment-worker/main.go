// Command assessment-worker runs the document-assessment pipeline worker:
// it claims tasks from the durable queue, extracts text, calls the remote
// AI-detection service, and advances the Task/Document/Result state
// machines until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bobmcallan/assessor/internal/clients/detector"
	"github.com/bobmcallan/assessor/internal/common"
	"github.com/bobmcallan/assessor/internal/models"
	"github.com/bobmcallan/assessor/internal/services/assessment"
	"github.com/bobmcallan/assessor/internal/storage"
	"github.com/bobmcallan/assessor/internal/storage/badger"
	"github.com/bobmcallan/assessor/internal/storage/surrealdb"
)

func main() {
	common.LoadVersionFromFile()

	config, err := common.LoadConfig("config.toml", "config.local.toml")
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := common.NewLogger(config.Logging.Level)
	common.PrintBanner("assessment-worker", config, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager, err := surrealdb.NewManager(logger, config)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to SurrealDB")
		os.Exit(1)
	}
	defer manager.Close()

	blobCfg := storage.BlobStoreConfig{
		Backend: config.Blob.Backend,
		File:    storage.FileBlobConfig{BasePath: config.Blob.File.BasePath},
		S3: storage.S3BlobConfig{
			Bucket:    config.Blob.S3.Bucket,
			Prefix:    config.Blob.S3.Prefix,
			Region:    config.Blob.S3.Region,
			Endpoint:  config.Blob.S3.Endpoint,
			AccessKey: config.Blob.S3.AccessKey,
			SecretKey: config.Blob.S3.SecretKey,
		},
	}
	blobStore, err := storage.NewBlobStore(ctx, logger, &blobCfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize blob store")
		os.Exit(1)
	}
	defer blobStore.Close()

	quotaStore, err := badger.NewStore(logger, "data/quota")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open quota store")
		os.Exit(1)
	}
	defer quotaStore.Close()

	quotaLedger := badger.NewQuotaLedger(quotaStore, logger, planLimits(config), nil)

	detectorClient := detector.NewClientFromConfig(config.Detector)
	extractor := assessment.NewExtractPool(assessment.NewExtractor(), 0)
	defer extractor.Close()

	worker := assessment.NewWorker(
		manager.TaskStore(),
		manager.DocumentStore(),
		manager.ResultStore(),
		blobStore,
		extractor,
		detectorClient,
		quotaLedger,
		logger,
		assessment.ConfigFromCommon(&config.Assessment),
	)

	worker.Start()

	<-ctx.Done()
	common.PrintShutdownBanner("assessment-worker", logger)
	worker.Stop()
}

// planLimits builds the FREE/PRO monthly limits QuotaLedger enforces from
// config. SCHOOLS carries no entry — it is unlimited by construction.
func planLimits(config *common.Config) map[models.Plan]models.PlanLimits {
	return map[models.Plan]models.PlanLimits{
		models.PlanFree: {
			MonthlyWords: config.Assessment.FreePlanMonthlyWords,
			MonthlyChars: config.Assessment.FreePlanMonthlyChars,
		},
		models.PlanPro: {
			MonthlyWords: config.Assessment.ProPlanMonthlyWords,
			MonthlyChars: config.Assessment.ProPlanMonthlyChars,
		},
	}
}
