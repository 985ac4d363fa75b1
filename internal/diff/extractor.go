package diff

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/stepreview/pkg/models"
)

// Hunk header, e.g. "@@ -10,3 +12,4 @@ optional section heading".
// Lengths are optional: "@@ -1 +1 @@" is valid for single-line ranges.
var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Extractor recovers the added/modified lines of a single-file unified
// diff together with their absolute line numbers in the new version of
// the file. It is stateless; one instance can be shared freely.
type Extractor struct{}

// NewExtractor creates a new diff line extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract scans a unified-diff body and returns one ChangedLine per
// added line, in input order, with the "+" marker stripped.
//
// Line bookkeeping: each hunk header resets the counter to newStart-1 so
// the first content line after the header lands on newStart. Added and
// context lines occupy positions in the new file and advance the
// counter; removed lines exist only in the old file and must not.
// Malformed hunk headers are skipped without aborting the extraction,
// and nothing before the first valid header is counted.
func (e *Extractor) Extract(patchText string) []models.ChangedLine {
	if patchText == "" {
		return nil
	}

	var changed []models.ChangedLine
	currentLine := 0
	inHunk := false

	for _, line := range strings.Split(patchText, "\n") {
		if strings.HasPrefix(line, "@@") {
			if m := hunkHeaderRe.FindStringSubmatch(line); m != nil {
				newStart, err := strconv.Atoi(m[3])
				if err == nil && newStart >= 1 {
					currentLine = newStart - 1
					inHunk = true
					continue
				}
			}
			// Malformed header: drop it and keep scanning with the
			// running position unchanged.
			continue
		}

		if !inHunk {
			// File headers ("--- a/x", "+++ b/x") and any other
			// preamble occupy no positions in the new file.
			continue
		}

		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			// File-header markers inside the body (new/deleted file
			// diffs); not content.
		case strings.HasPrefix(line, "+"):
			currentLine++
			changed = append(changed, models.ChangedLine{
				Content:    strings.TrimPrefix(line, "+"),
				LineNumber: currentLine,
			})
		case strings.HasPrefix(line, "-"):
			// Removed line: old file only, no new-file position.
		case strings.HasPrefix(line, `\`):
			// "\ No newline at end of file": metadata, not content.
		default:
			// Context line: present in both versions, advances but is
			// not recorded.
			currentLine++
		}
	}

	return changed
}

// LineNumbers returns just the line numbers of a changed-line sequence,
// in order.
func LineNumbers(changed []models.ChangedLine) []int {
	nums := make([]int, 0, len(changed))
	for _, c := range changed {
		nums = append(nums, c.LineNumber)
	}
	return nums
}

// JoinContent concatenates the content of a changed-line sequence with
// newlines, producing the target text handed to the analysis capability.
func JoinContent(changed []models.ChangedLine) string {
	parts := make([]string, 0, len(changed))
	for _, c := range changed {
		parts = append(parts, c.Content)
	}
	return strings.Join(parts, "\n")
}
