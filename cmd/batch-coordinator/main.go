// Command batch-coordinator periodically rolls up every active batch's
// status from its constituent documents' current states.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bobmcallan/assessor/internal/common"
	"github.com/bobmcallan/assessor/internal/services/assessment"
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
	common.PrintBanner("batch-coordinator", config, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager, err := surrealdb.NewManager(logger, config)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to SurrealDB")
		os.Exit(1)
	}
	defer manager.Close()

	coordinator := assessment.NewBatchCoordinator(
		manager.BatchStore(),
		logger,
		config.Assessment.GetCoordinatorInterval(),
		nil,
	)

	coordinator.Start()

	<-ctx.Done()
	common.PrintShutdownBanner("batch-coordinator", logger)
	coordinator.Stop()
}
