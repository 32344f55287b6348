package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"shopfloor-planner/app"
	"shopfloor-planner/config"
	"shopfloor-planner/core/plan"
)

var (
	scheduleOrderIDs []string
	scheduleHorizon  int
	scheduleStrategy string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Generate a production schedule and print it as JSON",
	RunE:  generateSchedule,
}

func init() {
	scheduleCmd.Flags().StringSliceVar(&scheduleOrderIDs, "order", nil, "order ID to schedule (repeatable, default all pending)")
	scheduleCmd.Flags().IntVar(&scheduleHorizon, "horizon", 0, "planning horizon in days")
	scheduleCmd.Flags().StringVar(&scheduleStrategy, "strategy", "", "scheduling strategy: balanced, rush or efficiency")
	rootCmd.AddCommand(scheduleCmd)
}

func generateSchedule(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	req := plan.Request{
		HorizonDays: scheduleHorizon,
		Strategy:    plan.Strategy(scheduleStrategy),
	}
	for _, raw := range scheduleOrderIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid order id %q: %w", raw, err)
		}
		req.OrderIDs = append(req.OrderIDs, id)
	}

	result, err := svc.Scheduler.GenerateSchedule(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
