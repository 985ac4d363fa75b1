package stepcontext

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/stepreview/internal/logging"
)

// Default patterns mirror a conventional BDD project layout: feature
// documents anywhere in the tree, step implementations under steps/
// directories.
var (
	DefaultFeaturePatterns = []string{"*.feature"}
	DefaultStepPatterns    = []string{"steps/*.java"}
)

// Collector gathers feature specifications and step-definition sources
// from a project root as flat text blobs for semantic context. Matching
// is glob-style: a pattern is applied to the trailing path segments of
// each file, so "steps/*.java" matches any .java file directly under a
// steps directory at any depth.
type Collector struct {
	root            string
	featurePatterns []string
	stepPatterns    []string
	logger          *logging.ReviewLogger
}

// NewCollector creates a collector for the given project root. Empty
// pattern lists fall back to the defaults.
func NewCollector(root string, featurePatterns, stepPatterns []string, logger *logging.ReviewLogger) *Collector {
	if len(featurePatterns) == 0 {
		featurePatterns = DefaultFeaturePatterns
	}
	if len(stepPatterns) == 0 {
		stepPatterns = DefaultStepPatterns
	}
	return &Collector{
		root:            root,
		featurePatterns: featurePatterns,
		stepPatterns:    stepPatterns,
		logger:          logger,
	}
}

// CollectFeatures returns the contents of all feature files under the
// root, in discovery order.
func (c *Collector) CollectFeatures() []string {
	return c.collect(c.featurePatterns)
}

// CollectStepDefinitions returns the contents of all step-definition
// files under the root, in discovery order.
func (c *Collector) CollectStepDefinitions() []string {
	return c.collect(c.stepPatterns)
}

// collect walks the root and reads every file matching any pattern.
// Unreadable files are logged and skipped; partial context is acceptable
// and expected.
func (c *Collector) collect(patterns []string) []string {
	var blobs []string

	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			c.logger.LogError("walking "+path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(c.root, path)
		if err != nil {
			rel = path
		}
		if !MatchesAny(patterns, rel) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			c.logger.LogError("reading context file "+path, err)
			return nil
		}
		blobs = append(blobs, string(content))
		return nil
	})
	if err != nil {
		c.logger.LogError("walking project root "+c.root, err)
	}

	return blobs
}

// MatchesAny reports whether the relative path matches any pattern.
// Each pattern is compared segment-wise against the same number of
// trailing path segments.
func MatchesAny(patterns []string, relPath string) bool {
	segments := strings.Split(filepath.ToSlash(relPath), "/")
	for _, pattern := range patterns {
		if matchTail(pattern, segments) {
			return true
		}
	}
	return false
}

func matchTail(pattern string, segments []string) bool {
	patternSegments := strings.Split(pattern, "/")
	if len(patternSegments) > len(segments) {
		return false
	}
	tail := segments[len(segments)-len(patternSegments):]
	for i, ps := range patternSegments {
		ok, err := filepath.Match(ps, tail[i])
		if err != nil || !ok {
			return false
		}
	}
	return true
}
