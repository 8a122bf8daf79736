package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	appLog "officemove/internal/log"
	"officemove/internal/move"
	"officemove/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Serve the landing page, the countdown API and stream, the calendar download and metrics.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, planner, err := loadPlanner()
	if err != nil {
		return err
	}

	appLog.Info("officemove starting",
		"version", version,
		"config", configPath,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"rule", planner.Rule.String(),
		"duration", cfg.Duration().String(),
		"refresh", cfg.RefreshCron,
		"strict_escaping", cfg.StrictEscaping,
	)

	tracker, err := move.NewTracker(planner, nil)
	if err != nil {
		return fmt.Errorf("failed to resolve move day: %w", err)
	}
	if err := tracker.Start(cfg.RefreshCron); err != nil {
		return fmt.Errorf("failed to start refresh schedule: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tracker.Stop(stopCtx)
		appLog.Info("officemove exiting")
	}()

	srv := web.NewServer(cfg, tracker)
	return srv.Run(cmd.Context())
}
