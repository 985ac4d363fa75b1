package analysis

import (
	"strings"

	"github.com/stepreview/pkg/models"
)

// buildPrompt renders the analysis request as the review prompt. The
// bogus-test taxonomy stays in the prompt itself so the capability needs
// no out-of-band instructions.
func buildPrompt(request models.AnalysisRequest) string {
	var prompt strings.Builder

	prompt.WriteString("Analyze this specific step definition in the context of the entire test suite to detect BOGUS tests.\n")
	prompt.WriteString("Only report important warnings.\n\n")

	prompt.WriteString("A bogus test could include the following characteristics:\n\n")
	prompt.WriteString("Incomplete Tests:\n")
	prompt.WriteString("- Steps in the feature file that are missing corresponding step definitions.\n")
	prompt.WriteString("- Steps with placeholders instead of real values (e.g., <some_value>).\n\n")
	prompt.WriteString("Ambiguities and Errors:\n")
	prompt.WriteString("- Steps with ambiguous or poorly defined behavior.\n")
	prompt.WriteString("- Multiple step definitions matching the same step (causing ambiguity errors).\n\n")
	prompt.WriteString("Logical Contradictions:\n")
	prompt.WriteString("- Steps that contradict each other (e.g., two conflicting \"Given\" steps).\n")
	prompt.WriteString("- Steps with inconsistent parameter usage (e.g., mismatched variable names).\n\n")
	prompt.WriteString("Redundant or Duplicate Tests:\n")
	prompt.WriteString("- Scenarios that are identical or almost identical to others.\n")
	prompt.WriteString("- Steps that repeat unnecessarily within a single scenario.\n\n")
	prompt.WriteString("Unused or Undefined Steps:\n")
	prompt.WriteString("- Step definitions that are never referenced in any feature file.\n")
	prompt.WriteString("- Steps in feature files without corresponding step definitions.\n\n")
	prompt.WriteString("Lack of Assertions:\n")
	prompt.WriteString("- Scenarios missing validation steps (e.g., no \"Then\" step or missing meaningful assertions).\n\n")
	prompt.WriteString("Overly Broad Scenarios:\n")
	prompt.WriteString("- Scenarios that lack specificity or clear expected outcomes.\n\n")

	prompt.WriteString("Each line of the step definition below is prefixed with its absolute line number\n")
	prompt.WriteString("in the file under review, as \"NNN: content\". Report every issue against one of\n")
	prompt.WriteString("those line numbers. Do NOT reference any other lines.\n\n")

	prompt.WriteString("Step Definition to Analyze:\n")
	prompt.WriteString(request.TargetText)
	prompt.WriteString("\n\nContext - Feature Files:\n")
	prompt.WriteString(strings.Join(request.FeatureContext, "\n\n"))
	prompt.WriteString("\n\nContext - Other Step Definitions:\n")
	prompt.WriteString(strings.Join(request.StepContext, "\n\n"))

	prompt.WriteString("\n\nReturn your analysis as JSON with the following structure:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"issues\": [\"Description of each identified issue\"],\n")
	prompt.WriteString("  \"suggestions\": [\"Improvement suggestion for the issue at the same index\"],\n")
	prompt.WriteString("  \"line_numbers\": [42],\n")
	prompt.WriteString("  \"confidence\": 0.9\n")
	prompt.WriteString("}\n")
	prompt.WriteString("```\n\n")
	prompt.WriteString("CRITICAL: issues, suggestions and line_numbers MUST have the same length.\n")
	prompt.WriteString("Index i across all three refers to one finding. confidence is a float in [0,1].\n")
	prompt.WriteString("Return an empty issues array when nothing important is wrong.\n")

	return prompt.String()
}
