package errors

import (
	"fmt"
	"os/exec"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *NotifyError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ParseFailed reports a raw line that could not be decoded.
func ParseFailed(line string, err error) *NotifyError {
	return Wrap(err, ErrCodeParse, "could not decode raw notification").
		WithDetail("line", line)
}

// UnknownKind reports a raw kind token outside the recognized set.
func UnknownKind(path, token string) *NotifyError {
	return New(ErrCodeUnknownKind, fmt.Sprintf("unknown raw kind %q", token)).
		WithDetail("path", path).
		WithDetail("token", token)
}

// DisambiguationFailed wraps a failed link query. It is only ever logged.
func DisambiguationFailed(path string, err error) *NotifyError {
	return Wrap(err, ErrCodeDisambiguation, "link query failed").
		WithDetail("path", path)
}

// UnmatchedPattern reports accumulated kinds discarded by noise cleanup.
func UnmatchedPattern(path, kinds string) *NotifyError {
	return New(ErrCodeUnmatchedPattern, fmt.Sprintf("discarded unmatched pattern %s", kinds)).
		WithDetail("path", path).
		WithDetail("kinds", kinds)
}

// SourceSpawn creates a source start failure error
func SourceSpawn(binary string, err error) *NotifyError {
	notifyErr := Wrap(err, ErrCodeSourceSpawn, fmt.Sprintf("failed to start %s", binary)).
		WithDetail("binary", binary)
	if _, ok := err.(*exec.Error); ok {
		notifyErr = notifyErr.WithDetail("notFound", true)
	}
	return notifyErr
}

// SourceExited creates an unexpected source termination error
func SourceExited(binary string, err error) *NotifyError {
	notifyErr := Wrap(err, ErrCodeSourceExit, fmt.Sprintf("%s exited", binary)).
		WithDetail("binary", binary)

	// Extract exit code if available
	if exitErr, ok := err.(*exec.ExitError); ok {
		notifyErr = notifyErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return notifyErr
}

// SourceStderr reports an unexpected diagnostic line from the source.
func SourceStderr(binary, line string) *NotifyError {
	return New(ErrCodeSourceStderr, line).
		WithDetail("binary", binary)
}

// JournalFailed wraps a journal storage failure.
func JournalFailed(op string, err error) *NotifyError {
	return Wrap(err, ErrCodeJournal, fmt.Sprintf("journal %s failed", op)).
		WithDetail("op", op)
}
