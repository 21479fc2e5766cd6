package cmd

import (
	"fmt"
	"time"

	"github.com/pricebet/pricebet/internal/fees"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Compute the fee breakdown for a hypothetical wager",
	Long: `Computes the full fee breakdown for a wager offline, without a
running service: base fee, time-pressure fee band, pool-imbalance fee,
and the resulting net amount credited to the chosen pool.

Amounts are in minor units (1_000_000 = one whole unit).`,
	RunE: runQuote,
}

//nolint:gochecknoglobals // Cobra boilerplate
var (
	quoteBet       uint64
	quoteYesPool   uint64
	quoteNoPool    uint64
	quoteRemaining time.Duration
	quoteTotal     time.Duration
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().Uint64Var(&quoteBet, "bet", 10_000_000, "Wager size in minor units")
	quoteCmd.Flags().Uint64Var(&quoteYesPool, "yes-pool", 10_000_000, "Current YES pool in minor units")
	quoteCmd.Flags().Uint64Var(&quoteNoPool, "no-pool", 10_000_000, "Current NO pool in minor units")
	quoteCmd.Flags().DurationVar(&quoteRemaining, "remaining", 24*time.Hour, "Time remaining until the deadline")
	quoteCmd.Flags().DurationVar(&quoteTotal, "duration", 72*time.Hour, "Total market duration")
}

func runQuote(cmd *cobra.Command, args []string) error {
	if quoteTotal <= 0 {
		return fmt.Errorf("duration must be positive")
	}

	q, err := fees.QuoteBet(
		quoteBet,
		quoteRemaining.Milliseconds(),
		quoteTotal.Milliseconds(),
		quoteYesPool,
		quoteNoPool,
	)
	if err != nil {
		return fmt.Errorf("quote bet: %w", err)
	}

	tau := float64(quoteRemaining) / float64(quoteTotal)

	fmt.Printf("=== Wager Quote ===\n\n")
	fmt.Printf("Bet:             %s\n", formatUnits(q.Bet))
	fmt.Printf("Time remaining:  %s of %s (tau=%.3f)\n\n", quoteRemaining, quoteTotal, tau)
	fmt.Printf("Base fee:        %s (0.20%%)\n", formatUnits(q.BaseFee))
	fmt.Printf("Time fee:        %.2f%%\n", float64(q.TimeFeeBps)/100)
	fmt.Printf("Imbalance fee:   %.2f%%\n", float64(q.ImbalanceFeeBps)/100)
	fmt.Printf("Late fee:        %s (%.2f%%)\n", formatUnits(q.LateFee), float64(q.LateFeeBps)/100)
	fmt.Printf("Total fee:       %s\n\n", formatUnits(q.TotalFee))
	fmt.Printf("Net to pool:     %s\n", formatUnits(q.NetReceived))

	haircutBps := fees.SwitchHaircutBps(quoteRemaining.Milliseconds(), quoteTotal.Milliseconds())
	fmt.Printf("\nSwitch haircut at this time would be %.0f%%\n", float64(haircutBps)/100)

	return nil
}

// formatUnits renders minor units as a whole-unit decimal.
func formatUnits(v uint64) string {
	return fmt.Sprintf("%d.%06d", v/1_000_000, v%1_000_000)
}
