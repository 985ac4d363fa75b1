package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/stepreview/pkg/models"
)

// parseResult turns a raw capability response into a validated
// AnalysisResult. Failure modes map onto the error taxonomy: responses
// with no parseable JSON are malformed, parseable results that break the
// parallel-sequence invariant are misaligned.
func parseResult(response string) (*models.AnalysisResult, error) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return nil, newError(KindMalformed, fmt.Errorf("no JSON object found in response (%d chars)", len(response)))
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		// Models routinely emit trailing commas, unquoted keys or
		// truncated objects. Run the repair library before giving up.
		repaired, repairErr := jsonrepair.JSONRepair(jsonStr)
		if repairErr != nil {
			return nil, newError(KindMalformed, fmt.Errorf("unparsable response: %w", err))
		}
		if err := json.Unmarshal([]byte(repaired), &result); err != nil {
			return nil, newError(KindMalformed, fmt.Errorf("unparsable response after repair: %w", err))
		}
	}

	if err := result.Validate(); err != nil {
		return nil, newError(KindMisaligned, err)
	}

	return &result, nil
}

// extractJSON extracts the JSON payload from an LLM response, handling
// markdown code fences and surrounding prose.
func extractJSON(response string) string {
	// Prefer an explicit ```json fence
	start := strings.Index(response, "```json")
	if start == -1 {
		start = strings.Index(response, "```")
	}
	if start == -1 {
		// Check if the whole response is JSON
		trimmed := strings.TrimSpace(response)
		if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
			return trimmed
		}
		return ""
	}

	open := strings.Index(response[start:], "{")
	if open == -1 {
		return ""
	}
	open += start

	end := strings.LastIndex(response, "}")
	if end == -1 || end <= open {
		// Truncated fence: hand everything from the opening brace to
		// the repair step.
		return strings.TrimSpace(response[open:])
	}

	return response[open : end+1]
}
