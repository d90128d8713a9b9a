package command

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the default timeout for short-lived commands
	DefaultTimeout = 2 * time.Minute

	// MaxTimeout is the maximum allowed timeout
	MaxTimeout = 10 * time.Minute
)

// SafeBuilder validates command names and arguments before creating commands.
type SafeBuilder struct {
	defaultTimeout time.Duration
	validators     map[string]func(string) error
	executor       Executor
}

// NewSafeBuilder creates a new SafeBuilder instance with a RealExecutor
func NewSafeBuilder() *SafeBuilder {
	return NewSafeBuilderWithExecutor(&RealExecutor{})
}

// NewSafeBuilderWithExecutor creates a new SafeBuilder with a custom Executor
func NewSafeBuilderWithExecutor(exec Executor) *SafeBuilder {
	if exec == nil {
		exec = &RealExecutor{}
	}
	return &SafeBuilder{
		defaultTimeout: DefaultTimeout,
		validators:     makeDefaultValidators(),
		executor:       exec,
	}
}

// makeDefaultValidators returns the default set of validators
func makeDefaultValidators() map[string]func(string) error {
	return map[string]func(string) error{
		"binary":   validateBinary,
		"fileName": validateFileName,
		"event":    validateEventName,
		"envEntry": validateEnvEntry,
	}
}

var (
	eventNameRegex = regexp.MustCompile(`^[a-z_]+$`)
	envKeyRegex    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// validateBinary ensures a binary is a bare name or a clean path
func validateBinary(name string) error {
	if name == "" {
		return fmt.Errorf("binary cannot be empty")
	}
	if strings.ContainsAny(name, ";|&$`\n") {
		return fmt.Errorf("binary contains invalid characters: %s", name)
	}
	if strings.Contains(name, "/") && filepath.Clean(name) != name {
		return fmt.Errorf("binary path is not clean: %s", name)
	}
	return nil
}

// validateFileName ensures watched paths can be passed as a single argument.
// Arguments are never interpreted by a shell, so only NUL and newlines are
// rejected; newlines would break the line framed output.
func validateFileName(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if strings.ContainsAny(path, "\x00\n") {
		return fmt.Errorf("file path contains invalid characters")
	}
	if strings.HasPrefix(path, "-") {
		return fmt.Errorf("file path cannot start with '-': %s", path)
	}
	return nil
}

// validateEventName ensures event names look like inotifywait events
func validateEventName(name string) error {
	if !eventNameRegex.MatchString(name) {
		return fmt.Errorf("invalid event name: %s", name)
	}
	return nil
}

// validateEnvEntry ensures environment entries are KEY=VALUE
func validateEnvEntry(entry string) error {
	key, _, ok := strings.Cut(entry, "=")
	if !ok || !envKeyRegex.MatchString(key) {
		return fmt.Errorf("invalid environment entry: %s", entry)
	}
	return nil
}

// Command represents a validated command configuration
type Command struct {
	ctx      context.Context
	cancel   context.CancelFunc
	name     string
	args     []string
	timeout  time.Duration
	executor Executor
}

// Build creates a new short-lived command bounded by the default timeout.
func (sb *SafeBuilder) Build(ctx context.Context, name string, args ...string) (*Command, error) {
	cmd, err := sb.BuildLongRunning(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	return cmd.WithTimeout(sb.defaultTimeout), nil
}

// BuildLongRunning creates a command that lives until ctx is cancelled.
func (sb *SafeBuilder) BuildLongRunning(ctx context.Context, name string, args ...string) (*Command, error) {
	if err := validateBinary(name); err != nil {
		return nil, err
	}
	return &Command{
		ctx:      ctx,
		name:     name,
		args:     args,
		executor: sb.executor,
	}, nil
}

// WithTimeout bounds the command's lifetime
func (c *Command) WithTimeout(timeout time.Duration) *Command {
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.ctx, c.cancel = context.WithTimeout(c.ctx, timeout)
	c.timeout = timeout
	return c
}

// Validate validates specific arguments
func (sb *SafeBuilder) Validate(argType string, value string) error {
	validator, exists := sb.validators[argType]
	if !exists {
		return fmt.Errorf("no validator for argument type: %s", argType)
	}

	return validator(value)
}

// Name returns the binary being run
func (c *Command) Name() string { return c.name }

// Args returns the arguments, without the binary
func (c *Command) Args() []string { return append([]string(nil), c.args...) }

// Exec creates and returns an exec.Cmd
func (c *Command) Exec() *exec.Cmd {
	return c.executor.CommandContext(c.ctx, c.name, c.args...) //nolint:gosec // SafeBuilder provides validation
}

// Release frees the timeout context, if any. Call it once the command exited.
func (c *Command) Release() {
	if c.cancel != nil {
		c.cancel()
	}
}
