package classify

import (
	"github.com/grovetools/notify/errors"
	"github.com/grovetools/notify/pkg/inotify"
)

// Accumulator holds the raw kinds seen per path since the path was last
// resolved. Bits are only ever added; an entry is dropped as a whole.
type Accumulator struct {
	patterns map[string]inotify.Kind
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{patterns: make(map[string]inotify.Kind)}
}

// Merge ORs tokens into path's pattern and returns the result. Unknown
// tokens are returned as UNKNOWN_KIND errors and leave the pattern alone.
// A merge that adds nothing does not create an entry.
func (a *Accumulator) Merge(path string, tokens []string) (inotify.Kind, []error) {
	set, unknown := inotify.ParseKinds(tokens)

	var errs []error
	for _, token := range unknown {
		errs = append(errs, errors.UnknownKind(path, token))
	}

	current, ok := a.patterns[path]
	if set == 0 && !ok {
		return 0, errs
	}
	current |= set
	a.patterns[path] = current
	return current, errs
}

// Get returns path's pattern, or zero when absent.
func (a *Accumulator) Get(path string) inotify.Kind {
	return a.patterns[path]
}

// Present reports whether path has an entry.
func (a *Accumulator) Present(path string) bool {
	_, ok := a.patterns[path]
	return ok
}

// Clear drops path's entry. Clearing an absent path is a no-op.
func (a *Accumulator) Clear(path string) {
	delete(a.patterns, path)
}

// Len returns the number of unresolved paths.
func (a *Accumulator) Len() int {
	return len(a.patterns)
}

// Reset drops every entry.
func (a *Accumulator) Reset() {
	a.patterns = make(map[string]inotify.Kind)
}
