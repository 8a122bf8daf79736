package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"officemove/internal/countdown"
	"officemove/internal/move"
)

var nextCount int

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Print the next move day",
	Long:  `Print the next move day, the time left until it and the move days after it.`,
	Example: `  officemove next
  officemove next -n 6`,
	Args: cobra.NoArgs,
	RunE: runNext,
}

func init() {
	nextCmd.Flags().IntVarP(&nextCount, "count", "n", 3, "Number of upcoming move days to list")
	rootCmd.AddCommand(nextCmd)
}

func runNext(cmd *cobra.Command, args []string) error {
	_, planner, err := loadPlanner()
	if err != nil {
		return err
	}

	now := time.Now()
	a, err := planner.Plan(now)
	if err != nil {
		return err
	}
	upcoming, err := planner.Upcoming(now, nextCount)
	if err != nil {
		return err
	}

	printAnnouncement(cmd, a, a.Remaining(now), upcoming)
	return nil
}

// printAnnouncement prints the announcement with colors
func printAnnouncement(cmd *cobra.Command, a move.Announcement, rem countdown.Remaining, upcoming []time.Time) {
	out := cmd.OutOrStdout()
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)

	cyan.Fprintln(out, a.Title)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "When:      %s\n", a.Label)
	fmt.Fprintf(out, "UTC:       %s\n", a.Target.UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "Duration:  %s\n", a.End.Sub(a.Target))
	fmt.Fprintf(out, "Location:  %s\n", a.Location)

	fmt.Fprint(out, "Remaining: ")
	if rem.IsZero() {
		yellow.Fprintln(out, "now")
	} else {
		green.Fprintln(out, rem.String())
	}

	if len(upcoming) > 1 {
		fmt.Fprintln(out)
		cyan.Fprintln(out, "Following move days")
		for _, t := range upcoming[1:] {
			fmt.Fprintf(out, "  %s\n", t.Format(move.LabelLayout))
		}
	}
}
