package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"shopfloor-planner/app"
	"shopfloor-planner/config"
	"shopfloor-planner/core/simulate"
)

var (
	rushProductID string
	rushQuantity  int
	rushTarget    string
	rushPriority  int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate inserting a rush order and print the scenarios as JSON",
	RunE:  simulateRush,
}

func init() {
	simulateCmd.Flags().StringVar(&rushProductID, "product", "", "product ID of the rush order")
	simulateCmd.Flags().IntVar(&rushQuantity, "quantity", 0, "requested quantity")
	simulateCmd.Flags().StringVar(&rushTarget, "target", "", "target delivery date (RFC 3339)")
	simulateCmd.Flags().IntVar(&rushPriority, "priority", 1, "order priority from 1 (most urgent) to 5")
	_ = simulateCmd.MarkFlagRequired("product")
	_ = simulateCmd.MarkFlagRequired("quantity")
	_ = simulateCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(simulateCmd)
}

func simulateRush(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	productID, err := uuid.Parse(rushProductID)
	if err != nil {
		return fmt.Errorf("invalid product id %q: %w", rushProductID, err)
	}
	target, err := time.Parse(time.RFC3339, rushTarget)
	if err != nil {
		return fmt.Errorf("invalid target date %q: %w", rushTarget, err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	result, err := svc.Simulator.SimulateRushOrder(ctx, simulate.RushOrder{
		ProductID:  productID,
		Quantity:   rushQuantity,
		TargetDate: target,
		Priority:   rushPriority,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
