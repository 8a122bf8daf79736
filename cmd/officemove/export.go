package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"officemove/internal/ics"
)

var (
	exportDir    string
	exportStrict bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the next move day as office-move.ics",
	Example: `  officemove export
  officemove export --out ~/Downloads --strict`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", ".", "Directory to write the calendar file to")
	exportCmd.Flags().BoolVar(&exportStrict, "strict", false, "Escape backslash, semicolon and comma in text fields (overrides config)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, planner, err := loadPlanner()
	if err != nil {
		return err
	}

	strict := cfg.StrictEscaping
	if cmd.Flags().Changed("strict") {
		strict = exportStrict
	}

	now := time.Now()
	a, err := planner.Plan(now)
	if err != nil {
		return err
	}
	ev, err := a.Event()
	if err != nil {
		return err
	}

	d, err := ics.NewDownload(ics.NewEncoder(strict), ev, now)
	if err != nil {
		return err
	}

	offerer := ics.FileOfferer{Dir: exportDir}
	if err := offerer.Offer(cmd.Context(), d); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), offerer.Path(d.Filename))
	return nil
}
