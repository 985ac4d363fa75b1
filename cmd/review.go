package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/stepreview/internal/analysis"
	"github.com/stepreview/internal/config"
	"github.com/stepreview/internal/logging"
	"github.com/stepreview/internal/providers/github"
	"github.com/stepreview/internal/review"
	"github.com/stepreview/internal/stepcontext"
)

// ReviewCommand returns the review command
func ReviewCommand() *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "Review the changed step definitions of a pull request",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "Run review without posting comments",
			},
			&cli.StringFlag{
				Name:    "ai",
				Aliases: []string{"a"},
				Usage:   "Override the AI provider to use",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose output for this command",
			},
			&cli.IntFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "Override the review timeout in seconds",
			},
		},
		ArgsUsage: "PR_URL",
		Action:    runReview,
	}
}

func runReview(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: PR URL")
	}

	prURL := c.Args().Get(0)
	dryRun := c.Bool("dry-run")

	// Load configuration
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	reviewID := uuid.NewString()
	logger := logging.NewReviewLogger(reviewID, c.Bool("verbose"))
	logger.Log("Starting review of %s (dry-run: %v)", prURL, dryRun)

	ref, err := github.ParsePullRequestURL(prURL)
	if err != nil {
		return err
	}

	timeoutSeconds := cfg.Review.TimeoutSeconds
	if override := c.Int("timeout"); override > 0 {
		timeoutSeconds = override
	}
	timeout := time.Duration(timeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Hosting-service collaborator
	token := config.StringOption(cfg.Providers["github"], "token", "")
	client := github.NewClient(token, logger)

	sha, err := client.HeadSHA(ctx, ref)
	if err != nil {
		return err
	}
	changeSet, err := client.ChangeSet(ctx, ref)
	if err != nil {
		return err
	}

	// Materialize only the files the context collector will read.
	keep := contextFileFilter(cfg)
	snapshotRoot, err := client.MaterializeSnapshot(ctx, ref, sha, keep)
	if err != nil {
		return fmt.Errorf("failed to materialize project snapshot: %w", err)
	}
	defer os.RemoveAll(snapshotRoot)

	analyzer, err := buildAnalyzer(ctx, c, cfg, logger)
	if err != nil {
		return err
	}

	collector := stepcontext.NewCollector(snapshotRoot, cfg.Review.FeatureGlobs, cfg.Review.StepGlobs, logger)
	orchestrator := review.NewOrchestrator(collector, analyzer, review.Config{
		StepSuffixes:  cfg.Review.StepSuffixes,
		StepExtension: cfg.Review.StepExtension,
	}, logger)

	report, reviewErr := orchestrator.Review(ctx, changeSet)
	printReport(report)

	if len(report.Annotations) > 0 && !dryRun {
		if err := client.PostAnnotations(ctx, ref, sha, report.Annotations); err != nil {
			return err
		}
		fmt.Printf("Posted %d comments to %s\n", len(report.Annotations), ref)
	}

	if reviewErr != nil {
		return reviewErr
	}
	logger.Log("Review finished in %v", logger.Elapsed())
	return nil
}

// contextFileFilter selects the repository paths worth downloading for
// context: feature documents, step-definition sources, and anything
// matching the recognized step suffixes.
func contextFileFilter(cfg *config.Config) func(path string) bool {
	return func(path string) bool {
		if stepcontext.MatchesAny(cfg.Review.FeatureGlobs, path) {
			return true
		}
		if stepcontext.MatchesAny(cfg.Review.StepGlobs, path) {
			return true
		}
		for _, suffix := range cfg.Review.StepSuffixes {
			if strings.HasSuffix(path, suffix+cfg.Review.StepExtension) {
				return true
			}
		}
		return false
	}
}

func buildAnalyzer(ctx context.Context, c *cli.Context, cfg *config.Config, logger *logging.ReviewLogger) (analysis.Analyzer, error) {
	aiName := cfg.General.AI
	if override := c.String("ai"); override != "" {
		aiName = override
	}
	options := cfg.AI[aiName]
	if options == nil {
		return nil, fmt.Errorf("configuration for AI provider %s not found", aiName)
	}

	return analysis.NewLangchainAnalyzer(ctx, analysis.Config{
		Provider:          aiName,
		APIKey:            config.StringOption(options, "api_key", ""),
		Model:             config.StringOption(options, "model", ""),
		Temperature:       config.FloatOption(options, "temperature", 0),
		MaxTokens:         int(config.FloatOption(options, "max_tokens", 0)),
		RequestsPerMinute: int(config.FloatOption(options, "requests_per_minute", 0)),
	}, logger)
}

func printReport(report *review.Report) {
	fmt.Printf("\nReview %s: %d annotations, %d failures\n", report.ReviewID, len(report.Annotations), len(report.Failures))
	for _, annotation := range report.Annotations {
		fmt.Printf("  %s:%d\n", annotation.FilePath, annotation.Line)
		for _, line := range strings.Split(annotation.Body, "\n") {
			fmt.Printf("    %s\n", line)
		}
	}
	for _, failure := range report.Failures {
		fmt.Printf("  FAILED %s\n", failure.String())
	}
}
