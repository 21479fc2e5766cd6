package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "pricebet",
	Short: "Binary price-threshold prediction market service",
	Long: `Pricebet operates binary (YES/NO) prediction markets settled against
an external price oracle.

Markets ask whether an asset's price will be at or above a fixed
threshold at a deadline. The service seeds both pools at creation,
accepts wagers with time- and imbalance-scaled fees, locks wagering
shortly before the deadline, watches the oracle's action log for the
first post-deadline price update, and settles each market exactly once.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
