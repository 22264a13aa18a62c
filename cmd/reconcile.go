package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/StatArbTrader/pairs-bot/internal/position"
	"github.com/StatArbTrader/pairs-bot/internal/reconcile"
)

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare persisted position state against broker positions",
	Long: `reconcile repairs a persisted position the broker no longer holds
and reports broker exposure the local state does not know about. The
broker is always treated as ground truth.`,
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, args []string) error {
	store, err := position.NewFileStore(cfg.StatePath)
	if err != nil {
		return err
	}
	machine, err := position.NewMachine(store, cfg.SymbolA, cfg.SymbolB, logger)
	if err != nil {
		return err
	}

	r := reconcile.New(client, machine, logger)
	if err := r.Run(cmd.Context()); err != nil {
		var orphan *reconcile.OrphanedPositionError
		if errors.As(err, &orphan) {
			fmt.Printf("ORPHANED POSITION: %v\n", orphan)
			fmt.Println("Close or adopt the position manually before running the bot.")
		}
		return err
	}

	fmt.Printf("State consistent: %s is %s\n", cfg.PairName(), machine.Current().Mode)
	return nil
}
