// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bitbucket-stats/internal/cache"
	"bitbucket-stats/internal/config"
	"bitbucket-stats/internal/gateway"
	"bitbucket-stats/internal/report"
	"bitbucket-stats/internal/usecase"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Collects workspace activity and renders the report artifacts",
	Long: `Fetches commits, pull requests and diffstats for every repository in the
configured Bitbucket workspace, aggregates them per repository and month,
and writes CSV tables, PNG charts and an HTML/PDF report into the output
directory. With --visualize-only, collection is skipped and the visual
artifacts are re-rendered from the CSV files of a previous run.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Get the verbose flag from the root command to set up the logger.
		verbose, _ := cmd.InheritedFlags().GetBool("verbose")
		logger := log.New(io.Discard, "", log.LstdFlags) // Default: discard all logs.
		if verbose {
			logger.SetOutput(os.Stderr) // If verbose, log to standard error.
		}

		year, _ := cmd.Flags().GetInt("year")
		outputDir, _ := cmd.Flags().GetString("output-dir")
		visualizeOnly, _ := cmd.Flags().GetBool("visualize-only")

		renderer, err := report.NewRenderer(outputDir, year, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if visualizeOnly {
			summary, err := report.LoadCSVs(outputDir)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if err := renderer.RenderVisuals(summary); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to render visualizations: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Visualizations regenerated in %s\n", outputDir)
			return
		}

		cfg, err := config.NewLoader("BITBUCKET").Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		store, err := cache.New(cfg.CacheDir, cfg.MemCacheSize, cfg.CacheTTL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open response cache: %v\n", err)
			os.Exit(1)
		}

		// Inject dependencies and run the main business logic.
		client := gateway.NewClient(&cfg, store, logger)
		aggregator := usecase.NewAggregator(client, logger)

		logger.Printf("starting data collection for year %d", year)
		records, err := aggregator.Collect(ctx, year)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to collect workspace activity: %v\n", err)
			os.Exit(1)
		}

		summary := usecase.Aggregate(records)
		if err := renderer.Render(summary); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Report for %d written to %s\n", year, outputDir)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().Int("year", time.Now().Year(), "Year to collect statistics for")
	reportCmd.Flags().String("output-dir", "output", "Output directory for data and visualizations")
	reportCmd.Flags().Bool("visualize-only", false, "Only regenerate visualizations from existing CSV files")
}
