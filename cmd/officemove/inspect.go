package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"officemove/internal/countdown"
	"officemove/internal/ics"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect FILE",
	Short:   "Parse an exported .ics file and print its events",
	Example: `  officemove inspect office-move.ics`,
	Args:    cobra.ExactArgs(1),
	RunE:    runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	body, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	events, err := ics.Parse(body)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	now := time.Now()
	for i, ev := range events {
		if i > 0 {
			fmt.Fprintln(out)
		}
		cyan.Fprintln(out, ev.Summary)
		fmt.Fprintf(out, "UID:         %s\n", ev.UID)
		if ev.ProdID != "" {
			fmt.Fprintf(out, "Producer:    %s\n", ev.ProdID)
		}
		fmt.Fprintf(out, "Exported:    %s\n", ev.Stamp.Format(time.RFC3339))
		fmt.Fprintf(out, "Start:       %s (%s local)\n", ev.Start.UTC().Format(time.RFC3339), ev.Start.Local().Format(time.RFC1123))
		fmt.Fprintf(out, "End:         %s\n", ev.End.UTC().Format(time.RFC3339))
		fmt.Fprintf(out, "Location:    %s\n", ev.Location)
		fmt.Fprintf(out, "Description: %s\n", ev.Description)

		if _, err := ev.Event(); err != nil {
			red.Fprintf(out, "Invalid:     %v\n", err)
			continue
		}
		fmt.Fprint(out, "Remaining:   ")
		green.Fprintln(out, countdown.Compute(ev.Start, now).String())
	}
	return nil
}
