package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"officemove/internal/capture"
	appLog "officemove/internal/log"
)

var (
	captureURL    string
	captureOutput string
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Screenshot the landing page into the preview image",
	Long: `Open the running landing page in headless Chromium, wait for the first
countdown render and write a PNG that the server offers at /preview.png.`,
	Args: cobra.NoArgs,
	RunE: runCapture,
}

func init() {
	captureCmd.Flags().StringVar(&captureURL, "url", "", "Page URL (default: config capture.url or http://<listen>/)")
	captureCmd.Flags().StringVarP(&captureOutput, "out", "o", "", "Output PNG path (default: config capture.output)")
	rootCmd.AddCommand(captureCmd)
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := capture.Options{
		URL:        cfg.Capture.URL,
		OutputPath: cfg.Capture.Output,
		Width:      cfg.Capture.Width,
		Height:     cfg.Capture.Height,
		Timeout:    time.Duration(cfg.Capture.TimeoutSeconds) * time.Second,
	}
	if opts.URL == "" {
		opts.URL = "http://" + cfg.Listen + "/"
	}
	if captureURL != "" {
		opts.URL = captureURL
	}
	if captureOutput != "" {
		opts.OutputPath = captureOutput
	}

	appLog.Info("capturing preview", "url", opts.URL, "output", opts.OutputPath)
	if err := capture.CapturePNG(cmd.Context(), opts); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), opts.OutputPath)
	return nil
}
