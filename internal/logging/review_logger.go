package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ReviewLogger manages logging for a single review invocation. Every
// line carries the review ID so interleaved runs stay distinguishable.
type ReviewLogger struct {
	reviewID  string
	startTime time.Time
	log       zerolog.Logger
}

// NewReviewLogger creates a logger for one review run writing to stderr.
func NewReviewLogger(reviewID string, verbose bool) *ReviewLogger {
	return NewReviewLoggerTo(os.Stderr, reviewID, verbose)
}

// NewReviewLoggerTo creates a logger writing to the given sink. Tests use
// this to capture output.
func NewReviewLoggerTo(out io.Writer, reviewID string, verbose bool) *ReviewLogger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}).
		Level(level).
		With().
		Timestamp().
		Str("review_id", reviewID).
		Logger()

	return &ReviewLogger{
		reviewID:  reviewID,
		startTime: time.Now(),
		log:       logger,
	}
}

// ReviewID returns the ID of the run this logger belongs to.
func (l *ReviewLogger) ReviewID() string {
	if l == nil {
		return ""
	}
	return l.reviewID
}

// Log writes a formatted info-level message.
func (l *ReviewLogger) Log(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.log.Info().Msg(fmt.Sprintf(format, args...))
}

// Debug writes a formatted debug-level message, visible only in verbose mode.
func (l *ReviewLogger) Debug(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.log.Debug().Msg(fmt.Sprintf(format, args...))
}

// LogSection marks the start of a named stage of the review process.
func (l *ReviewLogger) LogSection(name string) {
	if l == nil {
		return
	}
	l.log.Info().Str("section", name).Msg(strings.ToUpper(name))
}

// LogError records a failed operation together with its error.
func (l *ReviewLogger) LogError(operation string, err error) {
	if l == nil {
		return
	}
	l.log.Error().Err(err).Msg(operation)
}

// LogFileSkipped records a file the pipeline intentionally passed over.
func (l *ReviewLogger) LogFileSkipped(filePath, reason string) {
	if l == nil {
		return
	}
	l.log.Debug().Str("file", filePath).Str("reason", reason).Msg("file skipped")
}

// Elapsed reports the time since the run started.
func (l *ReviewLogger) Elapsed() time.Duration {
	if l == nil {
		return 0
	}
	return time.Since(l.startTime)
}
