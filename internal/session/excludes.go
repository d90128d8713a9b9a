package session

import (
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"

	"github.com/grovetools/notify/errors"
)

// compileExcludes builds a matcher for .dockerignore-style globs.
func compileExcludes(globs []string) (*patternmatcher.PatternMatcher, error) {
	if len(globs) == 0 {
		return nil, nil
	}
	pm, err := patternmatcher.New(globs)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid exclude glob")
	}
	return pm, nil
}

// isExcluded matches path relative to the watch root. Paths outside the
// root are matched as given.
func (s *Session) isExcluded(path string) bool {
	if s.excludes == nil || path == "" {
		return false
	}
	rel := path
	if s.cfg.Path != "" {
		if r, err := filepath.Rel(s.cfg.Path, path); err == nil && r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			rel = r
		}
	}
	matched, err := s.excludes.MatchesOrParentMatches(rel)
	if err != nil {
		s.logger.WithError(err).WithField("path", path).Debug("Exclude match failed")
		return false
	}
	return matched
}
