package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/StatArbTrader/pairs-bot/internal/models"
	"github.com/StatArbTrader/pairs-bot/internal/position"
	"github.com/StatArbTrader/pairs-bot/internal/stats"
	"github.com/StatArbTrader/pairs-bot/pkg/formatters"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the pair spread, persisted state, and broker positions",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := position.NewFileStore(cfg.StatePath)
	if err != nil {
		return err
	}
	machine, err := position.NewMachine(store, cfg.SymbolA, cfg.SymbolB, logger)
	if err != nil {
		return err
	}

	seriesA, err := client.GetDailyCloses(ctx, cfg.SymbolA, cfg.LookbackDays)
	if err != nil {
		return err
	}
	seriesB, err := client.GetDailyCloses(ctx, cfg.SymbolB, cfg.LookbackDays)
	if err != nil {
		return err
	}

	sample, err := stats.ComputeSpread(seriesA, seriesB, cfg.SpreadLookback)
	if err != nil {
		return fmt.Errorf("compute spread: %w", err)
	}

	fmt.Println(formatters.FormatPairStatus(cfg.PairName(), machine.Current(), sample, cfg.EntryThreshold))

	positions, err := client.GetPositions(ctx)
	if err != nil {
		return err
	}
	var legs []*models.Position
	for _, pos := range positions {
		if pos.Symbol == cfg.SymbolA || pos.Symbol == cfg.SymbolB {
			legs = append(legs, pos)
		}
	}
	fmt.Println(formatters.FormatPositionsTable(legs))

	account, err := client.GetAccount(ctx)
	if err != nil {
		return err
	}
	fmt.Println(formatters.FormatAccount(account))

	return nil
}
