package analysis

import "fmt"

// ErrorKind classifies analysis failures for the per-file report.
type ErrorKind string

const (
	// KindUnreachable covers transport failures: the capability could
	// not be reached, timed out, or was rate limited away.
	KindUnreachable ErrorKind = "unreachable"
	// KindMalformed covers responses that could not be parsed into the
	// result shape.
	KindMalformed ErrorKind = "malformed"
	// KindMisaligned covers responses that parsed but violate the
	// parallel-sequence invariant.
	KindMisaligned ErrorKind = "misaligned"
)

// AnalysisError is the single failure type at the semantic-analysis
// boundary. Callers skip the affected file and continue the batch.
type AnalysisError struct {
	Kind ErrorKind
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis %s: %v", e.Kind, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, err error) *AnalysisError {
	return &AnalysisError{Kind: kind, Err: err}
}
