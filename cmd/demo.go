package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/stepreview/internal/config"
	"github.com/stepreview/internal/logging"
	"github.com/stepreview/internal/stepcontext"
	"github.com/stepreview/pkg/models"
)

// Canned step bodies with well-known problems, for smoke-testing an AI
// configuration without a pull request.
var demoSnippets = []string{
	"public void exampleHardcodedValue() {\n    int value = 100; // Hardcoded value\n    System.out.println(\"The value is: \" + value);\n}",
	"public void unimplementedFeature() {\n    // TODO: Add implementation\n}",
	"@Given(\"user logs in\")\npublic void userLogsIn() {\n    System.out.println(\"User logs in with method A.\");\n}\n\n@Given(\"user logs in\")\npublic void userLogsInDuplicate() {\n    System.out.println(\"User logs in with method B.\");\n}",
	"public void exceptionIgnored() {\n    try {\n        riskyOperation();\n    } catch (Exception e) {\n        // Do nothing\n    }\n}",
}

// DemoCommand returns the demo command
func DemoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "Analyze canned bogus step definitions against a local project root",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root to collect context from",
				Value:   ".",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose output for this command",
			},
		},
		Action: runDemo,
	}
}

func runDemo(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewReviewLogger("demo", c.Bool("verbose"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	analyzer, err := buildAnalyzer(ctx, c, cfg, logger)
	if err != nil {
		return err
	}

	collector := stepcontext.NewCollector(c.String("root"), cfg.Review.FeatureGlobs, cfg.Review.StepGlobs, logger)
	features := collector.CollectFeatures()
	steps := collector.CollectStepDefinitions()
	logger.Log("Context: %d feature blobs, %d step blobs", len(features), len(steps))

	for i, snippet := range demoSnippets {
		fmt.Printf("\n--- Snippet %d/%d ---\n%s\n", i+1, len(demoSnippets), snippet)

		result, err := analyzer.Analyze(ctx, models.AnalysisRequest{
			TargetText:     snippet,
			FeatureContext: features,
			StepContext:    steps,
		})
		if err != nil {
			logger.LogError(fmt.Sprintf("analyzing snippet %d", i+1), err)
			continue
		}

		for _, finding := range result.Findings() {
			fmt.Printf("  line %d: %s\n    suggestion: %s\n", finding.Line, finding.Issue, finding.Suggestion)
		}
		fmt.Printf("  confidence: %.2f\n", result.Confidence)
	}

	return nil
}
