package review

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepreview/internal/analysis"
	"github.com/stepreview/internal/logging"
	"github.com/stepreview/pkg/models"
)

type stubContextSource struct {
	features     []string
	steps        []string
	collectCalls int
}

func (s *stubContextSource) CollectFeatures() []string {
	s.collectCalls++
	return s.features
}

func (s *stubContextSource) CollectStepDefinitions() []string {
	return s.steps
}

// mockAnalyzer returns queued results/errors keyed by call order and
// records every request it sees.
type mockAnalyzer struct {
	results  []*models.AnalysisResult
	errs     []error
	requests []models.AnalysisRequest
}

func (m *mockAnalyzer) Analyze(_ context.Context, request models.AnalysisRequest) (*models.AnalysisResult, error) {
	call := len(m.requests)
	m.requests = append(m.requests, request)
	if call < len(m.errs) && m.errs[call] != nil {
		return nil, m.errs[call]
	}
	if call < len(m.results) {
		return m.results[call], nil
	}
	return &models.AnalysisResult{Confidence: 1}, nil
}

func newTestOrchestrator(contexts ContextSource, analyzer analysis.Analyzer) *Orchestrator {
	logger := logging.NewReviewLoggerTo(io.Discard, "test", true)
	return NewOrchestrator(contexts, analyzer, Config{}, logger)
}

const stepPatch = "@@ -1,2 +1,3 @@\n context\n+added line\n context2"

func TestReviewSkipsNonStepFiles(t *testing.T) {
	analyzer := &mockAnalyzer{}
	contexts := &stubContextSource{}
	orchestrator := newTestOrchestrator(contexts, analyzer)

	report, err := orchestrator.Review(context.Background(), []models.ChangedFile{
		{FilePath: "src/main/Application.java", PatchText: stepPatch},
		{FilePath: "README.md", PatchText: stepPatch},
	})

	require.NoError(t, err)
	assert.Empty(t, report.Annotations)
	assert.Empty(t, report.Failures)
	// No analysis call and no context collection for irrelevant files.
	assert.Empty(t, analyzer.requests)
	assert.Zero(t, contexts.collectCalls)
}

func TestReviewSkipsEmptyPatches(t *testing.T) {
	analyzer := &mockAnalyzer{}
	orchestrator := newTestOrchestrator(&stubContextSource{}, analyzer)

	report, err := orchestrator.Review(context.Background(), []models.ChangedFile{
		{FilePath: "LoginSteps.java", PatchText: ""},
		{FilePath: "OrderStepDefs.java", PatchText: "@@ -1,2 +1,1 @@\n keep\n-removed only"},
	})

	require.NoError(t, err)
	assert.Empty(t, report.Annotations)
	assert.Empty(t, report.Failures)
	assert.Empty(t, analyzer.requests)
}

func TestReviewEmitsOneAnnotationPerFinding(t *testing.T) {
	analyzer := &mockAnalyzer{
		results: []*models.AnalysisResult{{
			Issues:      []string{"empty step body", "hardcoded value"},
			Suggestions: []string{"implement the assertion", "parameterize the value"},
			LineNumbers: []int{2, 2},
			Confidence:  0.9,
		}},
	}
	contexts := &stubContextSource{features: []string{"Feature: login"}, steps: []string{"class S {}"}}
	orchestrator := newTestOrchestrator(contexts, analyzer)

	report, err := orchestrator.Review(context.Background(), []models.ChangedFile{
		{FilePath: "LoginSteps.java", PatchText: stepPatch},
	})

	require.NoError(t, err)
	require.Len(t, report.Annotations, 2)
	assert.Empty(t, report.Failures)

	first := report.Annotations[0]
	assert.Equal(t, "LoginSteps.java", first.FilePath)
	assert.Equal(t, 2, first.Line)
	assert.Contains(t, first.Body, "empty step body")
	assert.Contains(t, first.Body, "implement the assertion")
	assert.Contains(t, first.Body, "0.90")

	// The analysis request carries the shared context and the
	// line-numbered changed block.
	require.Len(t, analyzer.requests, 1)
	request := analyzer.requests[0]
	assert.Equal(t, []string{"Feature: login"}, request.FeatureContext)
	assert.Equal(t, []string{"class S {}"}, request.StepContext)
	assert.Equal(t, "2: added line", request.TargetText)
}

func TestReviewRejectsMisalignedResult(t *testing.T) {
	analyzer := &mockAnalyzer{
		results: []*models.AnalysisResult{{
			Issues:      []string{"a", "b"},
			Suggestions: []string{"x"},
			LineNumbers: []int{1, 2},
			Confidence:  0.9,
		}},
	}
	orchestrator := newTestOrchestrator(&stubContextSource{}, analyzer)

	report, err := orchestrator.Review(context.Background(), []models.ChangedFile{
		{FilePath: "LoginSteps.java", PatchText: stepPatch},
	})

	// The lone file failed, so the batch-level error fires, but the
	// failure report stays structured.
	assert.ErrorIs(t, err, ErrAllFilesFailed)
	assert.Empty(t, report.Annotations)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, models.FailureMalformed, report.Failures[0].Kind)
}

func TestReviewContinuesPastFailedFile(t *testing.T) {
	analyzer := &mockAnalyzer{
		errs: []error{
			&analysis.AnalysisError{Kind: analysis.KindUnreachable, Err: errors.New("connection refused")},
			nil,
		},
		results: []*models.AnalysisResult{
			nil,
			{
				Issues:      []string{"duplicate step"},
				Suggestions: []string{"remove one definition"},
				LineNumbers: []int{2},
				Confidence:  0.7,
			},
		},
	}
	orchestrator := newTestOrchestrator(&stubContextSource{}, analyzer)

	report, err := orchestrator.Review(context.Background(), []models.ChangedFile{
		{FilePath: "FirstSteps.java", PatchText: stepPatch},
		{FilePath: "SecondStepDefs.java", PatchText: stepPatch},
	})

	require.NoError(t, err)
	require.Len(t, report.Annotations, 1)
	assert.Equal(t, "SecondStepDefs.java", report.Annotations[0].FilePath)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "FirstSteps.java", report.Failures[0].FilePath)
	assert.Equal(t, models.FailureAnalysis, report.Failures[0].Kind)
}

func TestReviewSnapsOutOfDiffLines(t *testing.T) {
	analyzer := &mockAnalyzer{
		results: []*models.AnalysisResult{{
			Issues:      []string{"issue"},
			Suggestions: []string{"fix"},
			LineNumbers: []int{40}, // not an extracted changed line
			Confidence:  0.6,
		}},
	}
	orchestrator := newTestOrchestrator(&stubContextSource{}, analyzer)

	patch := "@@ -1,2 +1,4 @@\n context\n+first\n+second\n context2"
	report, err := orchestrator.Review(context.Background(), []models.ChangedFile{
		{FilePath: "LoginSteps.java", PatchText: patch},
	})

	require.NoError(t, err)
	require.Len(t, report.Annotations, 1)
	// Snapped to the nearest changed line (3), never dropped.
	assert.Equal(t, 3, report.Annotations[0].Line)
}

func TestReviewCancellationKeepsEarlierAnnotations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	analyzer := &cancellingAnalyzer{cancel: cancel}
	orchestrator := newTestOrchestrator(&stubContextSource{}, analyzer)

	report, err := orchestrator.Review(ctx, []models.ChangedFile{
		{FilePath: "FirstSteps.java", PatchText: stepPatch},
		{FilePath: "SecondSteps.java", PatchText: stepPatch},
		{FilePath: "ignored.txt", PatchText: stepPatch},
	})

	require.NoError(t, err)
	// First file completed before the cancellation took effect.
	require.Len(t, report.Annotations, 1)
	assert.Equal(t, "FirstSteps.java", report.Annotations[0].FilePath)
	// The abandoned step file is reported; the irrelevant one is not.
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "SecondSteps.java", report.Failures[0].FilePath)
	assert.Equal(t, models.FailureCancelled, report.Failures[0].Kind)
}

// cancellingAnalyzer cancels the run context as a side effect of the
// first analysis, simulating a caller-supplied deadline firing mid-batch.
type cancellingAnalyzer struct {
	cancel context.CancelFunc
	calls  int
}

func (c *cancellingAnalyzer) Analyze(_ context.Context, _ models.AnalysisRequest) (*models.AnalysisResult, error) {
	c.calls++
	c.cancel()
	return &models.AnalysisResult{
		Issues:      []string{"issue"},
		Suggestions: []string{"fix"},
		LineNumbers: []int{2},
		Confidence:  0.5,
	}, nil
}

func TestIsStepDefinitionFile(t *testing.T) {
	orchestrator := newTestOrchestrator(&stubContextSource{}, &mockAnalyzer{})

	tests := []struct {
		path     string
		expected bool
	}{
		{"src/test/java/LoginSteps.java", true},
		{"AccountStepDefinitions.java", true},
		{"checkout/CheckoutStepsImpl.java", true},
		{"OrderStepDefs.java", true},
		{"LoginSteps.kt", false},
		{"StepsHelper.java", false},
		{"README.md", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, orchestrator.isStepDefinitionFile(tt.path))
		})
	}
}

func TestClampLine(t *testing.T) {
	tests := []struct {
		name      string
		reported  int
		extracted []int
		expected  int
	}{
		{"exact hit", 5, []int{2, 5, 9}, 5},
		{"snaps down", 6, []int{2, 5, 9}, 5},
		{"snaps up", 8, []int{2, 5, 9}, 9},
		{"tie prefers earlier", 7, []int{5, 9}, 5},
		{"below range", 1, []int{4, 8}, 4},
		{"empty extracted keeps reported", 3, nil, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, clampLine(tt.reported, tt.extracted))
		})
	}
}
