package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mohamedkhairy/fire-scanner/internal/api"
	"github.com/mohamedkhairy/fire-scanner/internal/config"
	"github.com/mohamedkhairy/fire-scanner/internal/data"
	"github.com/mohamedkhairy/fire-scanner/internal/intake"
	"github.com/mohamedkhairy/fire-scanner/internal/models"
	"github.com/mohamedkhairy/fire-scanner/internal/scanner"
	"github.com/mohamedkhairy/fire-scanner/internal/scoring"
	"github.com/mohamedkhairy/fire-scanner/pkg/logger"
	"github.com/spf13/cobra"
)

type scanOptions struct {
	venue     string
	timeframe string
	limit     int
	rulesPath string
	timeout   time.Duration
}

func newScanCmd() *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a venue once and print the ranked results",
		Long: `Scan a venue with the sources configured in the environment and
print the same JSON document the /scan endpoint returns.

Example:
  scanctl scan --venue sample_venue
  scanctl scan --venue sample_venue --timeframe 1d --limit 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.venue, "venue", "", "venue to scan (required)")
	cmd.Flags().StringVar(&opts.timeframe, "timeframe", string(models.DefaultTimeframe), "timeframe (1h|4h|1d)")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "number of results (default SCAN_RESULT_LIMIT)")
	cmd.Flags().StringVar(&opts.rulesPath, "rules", "", "scoring rules file (default SCORING_RULES_PATH)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "scan timeout (default API_REQUEST_TIMEOUT)")
	_ = cmd.MarkFlagRequired("venue")

	return cmd
}

func runScan(cmd *cobra.Command, opts *scanOptions) error {
	venue, err := models.ParseVenue(opts.venue)
	if err != nil {
		return err
	}
	timeframe, err := models.ParseTimeframe(opts.timeframe)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(logLevel, cfg.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	limit := cfg.Scan.ResultLimit
	if opts.limit > 0 {
		limit = opts.limit
	}
	rulesPath := cfg.Scan.RulesPath
	if opts.rulesPath != "" {
		rulesPath = opts.rulesPath
	}
	timeout := cfg.API.RequestTimeout
	if opts.timeout > 0 {
		timeout = opts.timeout
	}

	factory := data.NewSourceFactory()
	primary, err := factory.CreateSource(cfg.Primary)
	if err != nil {
		return fmt.Errorf("primary source: %w", err)
	}
	secondary, err := factory.CreateSource(cfg.Secondary)
	if err != nil {
		return fmt.Errorf("secondary source: %w", err)
	}

	service := scanner.NewService(
		scanner.ServiceConfig{ResultLimit: limit},
		intake.NewCoordinator(primary, secondary),
		scoring.NewEngine(scoring.FileRules(rulesPath)),
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	result, err := service.Scan(ctx, venue, timeframe)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(api.ScanResponse{
		Venue:     result.Venue,
		Timeframe: result.Timeframe,
		Count:     len(result.Items),
		Results:   result.Items,
	})
}
