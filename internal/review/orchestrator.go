package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/stepreview/internal/analysis"
	"github.com/stepreview/internal/diff"
	"github.com/stepreview/internal/logging"
	"github.com/stepreview/pkg/models"
)

// ErrAllFilesFailed is returned when every analyzed file in the change
// set failed; partial failures are reported through Report.Failures
// instead.
var ErrAllFilesFailed = errors.New("analysis failed for every file in the change set")

// DefaultStepSuffixes is the recognized step-definition naming
// convention, combined with the configured source extension.
var DefaultStepSuffixes = []string{"Steps", "StepDefinitions", "StepsImpl", "StepDefs"}

// ContextSource provides the project context shared by all per-file
// analyses. Collected once per run; read-only afterwards.
type ContextSource interface {
	CollectFeatures() []string
	CollectStepDefinitions() []string
}

// Config holds the orchestrator configuration.
type Config struct {
	StepSuffixes  []string
	StepExtension string
}

// Report is the outcome of one review run: the annotations produced plus
// a per-file failure list. A single bad file never aborts the batch.
type Report struct {
	ReviewID    string
	Annotations []models.ReviewAnnotation
	Failures    []models.FileFailure
}

// Orchestrator drives the change-scoped review pipeline: per file, it
// recovers changed lines from the patch, assembles project context,
// invokes the semantic-analysis capability, and maps each finding back
// to an annotation at the reported line.
type Orchestrator struct {
	extractor *diff.Extractor
	contexts  ContextSource
	analyzer  analysis.Analyzer
	config    Config
	logger    *logging.ReviewLogger
}

// NewOrchestrator creates a review orchestrator. Empty suffix/extension
// config falls back to the Java BDD defaults.
func NewOrchestrator(contexts ContextSource, analyzer analysis.Analyzer, config Config, logger *logging.ReviewLogger) *Orchestrator {
	if len(config.StepSuffixes) == 0 {
		config.StepSuffixes = DefaultStepSuffixes
	}
	if config.StepExtension == "" {
		config.StepExtension = ".java"
	}
	return &Orchestrator{
		extractor: diff.NewExtractor(),
		contexts:  contexts,
		analyzer:  analyzer,
		config:    config,
		logger:    logger,
	}
}

// Review processes one change set sequentially and returns the collected
// annotations alongside per-file failures. Cancellation via ctx abandons
// remaining files; annotations already produced stay in the report.
func (o *Orchestrator) Review(ctx context.Context, changeSet []models.ChangedFile) (*Report, error) {
	reviewID := o.logger.ReviewID()
	if reviewID == "" {
		reviewID = uuid.NewString()
	}
	report := &Report{ReviewID: reviewID}

	o.logger.LogSection("Review")
	o.logger.Log("Reviewing change set with %d files", len(changeSet))

	// Context is collected lazily: a change set with no step-definition
	// files must not touch the project snapshot at all.
	var featureContext, stepContext []string
	contextCollected := false

	analyzed := 0
	for i, file := range changeSet {
		if err := ctx.Err(); err != nil {
			// Abandon remaining files; everything produced so far
			// remains valid.
			for _, remaining := range changeSet[i:] {
				if o.isStepDefinitionFile(remaining.FilePath) {
					report.Failures = append(report.Failures, models.FileFailure{
						FilePath: remaining.FilePath,
						Kind:     models.FailureCancelled,
						Err:      err,
					})
				}
			}
			o.logger.Log("Review cancelled after %d/%d files: %v", i, len(changeSet), err)
			break
		}

		if !o.isStepDefinitionFile(file.FilePath) {
			o.logger.LogFileSkipped(file.FilePath, "not a step-definition file")
			continue
		}

		changed := o.extractor.Extract(file.PatchText)
		if len(changed) == 0 {
			o.logger.LogFileSkipped(file.FilePath, "no added lines in patch")
			continue
		}

		if !contextCollected {
			o.logger.Log("Collecting project context")
			featureContext = o.contexts.CollectFeatures()
			stepContext = o.contexts.CollectStepDefinitions()
			contextCollected = true
			o.logger.Log("Collected %d feature blobs and %d step-definition blobs",
				len(featureContext), len(stepContext))
		}

		analyzed++
		annotations, err := o.reviewFile(ctx, file.FilePath, changed, featureContext, stepContext)
		if err != nil {
			kind := models.FailureAnalysis
			var analysisErr *analysis.AnalysisError
			if errors.As(err, &analysisErr) && analysisErr.Kind == analysis.KindMisaligned {
				kind = models.FailureMalformed
			}
			o.logger.LogError("analysis of "+file.FilePath, err)
			report.Failures = append(report.Failures, models.FileFailure{
				FilePath: file.FilePath,
				Kind:     kind,
				Err:      err,
			})
			continue
		}
		report.Annotations = append(report.Annotations, annotations...)
	}

	o.logger.Log("Review complete: %d annotations, %d failures", len(report.Annotations), len(report.Failures))

	if analyzed > 0 && len(report.Failures) >= analyzed && len(report.Annotations) == 0 {
		return report, ErrAllFilesFailed
	}
	return report, nil
}

// reviewFile runs the analysis round trip for one file and maps each
// finding to an annotation.
func (o *Orchestrator) reviewFile(
	ctx context.Context,
	filePath string,
	changed []models.ChangedLine,
	featureContext, stepContext []string,
) ([]models.ReviewAnnotation, error) {

	o.logger.Log("Analyzing %s (%d changed lines)", filePath, len(changed))

	request := models.AnalysisRequest{
		TargetText:     formatTarget(changed),
		FeatureContext: featureContext,
		StepContext:    stepContext,
	}

	result, err := o.analyzer.Analyze(ctx, request)
	if err != nil {
		return nil, err
	}

	// The capability promises aligned sequences; never trust that
	// without checking. A violation means the whole result is suspect,
	// so nothing is emitted for this file.
	if err := result.Validate(); err != nil {
		return nil, &analysis.AnalysisError{Kind: analysis.KindMisaligned, Err: err}
	}

	extracted := diff.LineNumbers(changed)
	annotations := make([]models.ReviewAnnotation, 0, len(result.Issues))
	for _, finding := range result.Findings() {
		line := clampLine(finding.Line, extracted)
		if line != finding.Line {
			o.logger.Debug("Finding for %s reported line %d outside the diff; snapped to %d",
				filePath, finding.Line, line)
		}
		annotations = append(annotations, models.ReviewAnnotation{
			FilePath: filePath,
			Line:     line,
			Body:     models.FormatAnnotationBody(finding, result.Confidence),
		})
	}

	o.logger.Log("✓ %s: %d findings (confidence %.2f)", filePath, len(annotations), result.Confidence)
	return annotations, nil
}

// isStepDefinitionFile reports whether the path matches the recognized
// step-definition naming convention.
func (o *Orchestrator) isStepDefinitionFile(filePath string) bool {
	for _, suffix := range o.config.StepSuffixes {
		if strings.HasSuffix(filePath, suffix+o.config.StepExtension) {
			return true
		}
	}
	return false
}

// formatTarget renders the changed-line block with absolute line-number
// prefixes so the capability can report real file positions.
func formatTarget(changed []models.ChangedLine) string {
	var b strings.Builder
	for i, c := range changed {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d: %s", c.LineNumber, c.Content)
	}
	return b.String()
}

// clampLine snaps a reported line number onto the nearest extracted
// changed line. The capability's numbers are authoritative when they hit
// a commentable line; anything else would produce an annotation the
// hosting service rejects, so it is moved, never dropped. Ties prefer
// the earlier line.
func clampLine(reported int, extracted []int) int {
	if len(extracted) == 0 {
		return reported
	}
	best := extracted[0]
	for _, candidate := range extracted {
		if candidate == reported {
			return reported
		}
		if abs(candidate-reported) < abs(best-reported) {
			best = candidate
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
