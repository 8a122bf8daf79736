package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"officemove/internal/countdown"
)

var countdownWatch bool

var countdownCmd = &cobra.Command{
	Use:   "countdown",
	Short: "Print the time left until the next move day",
	Example: `  officemove countdown
  officemove countdown --watch`,
	Args: cobra.NoArgs,
	RunE: runCountdown,
}

func init() {
	countdownCmd.Flags().BoolVarP(&countdownWatch, "watch", "w", false, "Refresh every second until interrupted or the move day arrives")
	rootCmd.AddCommand(countdownCmd)
}

func runCountdown(cmd *cobra.Command, args []string) error {
	_, planner, err := loadPlanner()
	if err != nil {
		return err
	}

	a, err := planner.Plan(time.Now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen, color.Bold)

	if !countdownWatch {
		green.Fprintln(out, a.Remaining(time.Now()).String())
		return nil
	}

	reached := make(chan struct{})
	var once sync.Once
	tk := countdown.Start(a.Target, countdown.SystemClock{}, countdown.DefaultInterval, func(rem countdown.Remaining) {
		green.Fprintf(out, "\r%s  ", rem.String())
		if rem.IsZero() {
			once.Do(func() { close(reached) })
		}
	})

	select {
	case <-cmd.Context().Done():
	case <-reached:
	}
	tk.Stop()
	fmt.Fprintln(out)
	return nil
}
