package models

import (
	"fmt"
	"strings"
)

// ChangedFile is one entry of the change set handed to the review
// pipeline: the path of a file touched by a pull request together with
// its unified-diff patch body, exactly as reported by the hosting service.
type ChangedFile struct {
	FilePath  string `json:"file_path"`
	PatchText string `json:"patch_text"`
}

// ChangedLine is one line added or modified in a diff, with the diff
// marker stripped and the absolute 1-based line number in the new
// version of the file.
type ChangedLine struct {
	Content    string `json:"content"`
	LineNumber int    `json:"line_number"`
}

// AnalysisRequest is the input to the semantic-analysis capability.
type AnalysisRequest struct {
	TargetText     string   `json:"target_text"`
	FeatureContext []string `json:"feature_context"`
	StepContext    []string `json:"step_context"`
}

// AnalysisResult is the structured output of the semantic-analysis
// capability. Issues, Suggestions and LineNumbers are index-aligned:
// index i across all three refers to one logical finding. The capability
// promises the alignment but callers must Validate before trusting it.
type AnalysisResult struct {
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
	LineNumbers []int    `json:"line_numbers"`
	Confidence  float64  `json:"confidence"`
}

// Validate checks the structural invariant of the result. It rejects any
// response where the three parallel sequences differ in length or the
// confidence score is outside [0,1].
func (r *AnalysisResult) Validate() error {
	if len(r.Issues) != len(r.Suggestions) || len(r.Issues) != len(r.LineNumbers) {
		return fmt.Errorf("misaligned analysis result: %d issues, %d suggestions, %d line numbers",
			len(r.Issues), len(r.Suggestions), len(r.LineNumbers))
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", r.Confidence)
	}
	return nil
}

// Finding is one logical finding after validation. Converting the three
// parallel sequences into records makes misalignment impossible for
// everything downstream of the contract boundary.
type Finding struct {
	Issue      string
	Suggestion string
	Line       int
}

// Findings converts the validated parallel sequences into records.
// Callers must Validate first; Findings panics on misaligned input so a
// skipped validation never silently produces garbage.
func (r *AnalysisResult) Findings() []Finding {
	if err := r.Validate(); err != nil {
		panic(fmt.Sprintf("Findings called on invalid result: %v", err))
	}
	findings := make([]Finding, 0, len(r.Issues))
	for i := range r.Issues {
		findings = append(findings, Finding{
			Issue:      r.Issues[i],
			Suggestion: r.Suggestions[i],
			Line:       r.LineNumbers[i],
		})
	}
	return findings
}

// ReviewAnnotation is one outbound inline comment: a body attached to a
// file at a specific line in the new version of that file.
type ReviewAnnotation struct {
	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
	Body     string `json:"body"`
}

// Failure kinds recorded in the per-file failure report.
const (
	FailureAnalysis  = "analysis_error"
	FailureMalformed = "malformed_result"
	FailureCancelled = "cancelled"
)

// FileFailure records a per-file error surfaced alongside successful
// annotations. A single bad file never aborts the rest of the batch.
type FileFailure struct {
	FilePath string `json:"file_path"`
	Kind     string `json:"kind"`
	Err      error  `json:"-"`
}

func (f FileFailure) String() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.FilePath, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", f.FilePath, f.Kind, f.Err)
}

// FormatAnnotationBody renders a finding as the markdown body of a
// review comment: the issue, its suggestion, and the analysis confidence.
func FormatAnnotationBody(finding Finding, confidence float64) string {
	var b strings.Builder
	b.WriteString("**Possible bogus step definition**\n\n")
	b.WriteString(finding.Issue)
	if finding.Suggestion != "" {
		b.WriteString("\n\n**Suggestion:** ")
		b.WriteString(finding.Suggestion)
	}
	b.WriteString(fmt.Sprintf("\n\n_Confidence: %.2f_", confidence))
	return b.String()
}
