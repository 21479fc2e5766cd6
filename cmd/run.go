package cmd

import (
	"fmt"

	"github.com/pricebet/pricebet/internal/app"
	"github.com/pricebet/pricebet/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the market service",
	Long: `Starts the pricebet service, which will:
1. Serve the market API, metrics, and health probes over HTTP
2. Poll the oracle's action log for post-deadline price updates
3. Settle qualifying markets exactly once against the ledger
4. Advance displayed market statuses and refresh mirrored pools`,
	RunE: runService,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runService(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
