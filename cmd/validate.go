package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/StatArbTrader/pairs-bot/internal/stats"
	"github.com/StatArbTrader/pairs-bot/pkg/formatters"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the Engle-Granger cointegration test on the configured pair",
	Long: `validate fetches the trailing daily history for both legs and runs
the two-step Engle-Granger test: an OLS hedge regression, then an ADF
unit-root test on the residuals. A p-value below 0.05 means the spread
is stationary enough to trade.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	seriesA, err := client.GetDailyCloses(ctx, cfg.SymbolA, cfg.LookbackDays)
	if err != nil {
		return err
	}
	seriesB, err := client.GetDailyCloses(ctx, cfg.SymbolB, cfg.LookbackDays)
	if err != nil {
		return err
	}

	verdict, err := stats.TestCointegration(seriesA, seriesB)
	if err != nil {
		return fmt.Errorf("cointegration test: %w", err)
	}

	fmt.Println(formatters.FormatCointegration(cfg.PairName(), verdict))
	return nil
}
