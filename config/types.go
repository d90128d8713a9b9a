package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/grovetools/notify/util/pathutil"
)

//go:generate go run ../tools/schema-generator/

// Config represents the notify.yml configuration
type Config struct {
	Version string `yaml:"version,omitempty" toml:"version,omitempty" json:"version,omitempty" jsonschema:"description=Configuration version (e.g. 1.0)"`

	Path                     string   `yaml:"path,omitempty" toml:"path,omitempty" json:"path,omitempty" jsonschema:"description=File or directory to watch"`
	Recursive                *bool    `yaml:"recursive,omitempty" toml:"recursive,omitempty" json:"recursive,omitempty" jsonschema:"description=Watch subdirectories (default: true)"`
	WatchDirectory           bool     `yaml:"watch_directory,omitempty" toml:"watch_directory,omitempty" json:"watch_directory,omitempty" jsonschema:"description=Emit events for directories themselves"`
	ExcludePatterns          []string `yaml:"exclude_patterns,omitempty" toml:"exclude_patterns,omitempty" json:"exclude_patterns,omitempty" jsonschema:"description=POSIX extended regular expressions excluded by the source"`
	ExcludeGlobs             []string `yaml:"exclude_globs,omitempty" toml:"exclude_globs,omitempty" json:"exclude_globs,omitempty" jsonschema:"description=Glob patterns (.dockerignore syntax) dropped before classification"`
	ExplicitPathList         string   `yaml:"explicit_path_list,omitempty" toml:"explicit_path_list,omitempty" json:"explicit_path_list,omitempty" jsonschema:"description=File listing the paths to watch, one per line"`
	ReloadOnListChange       bool     `yaml:"reload_on_list_change,omitempty" toml:"reload_on_list_change,omitempty" json:"reload_on_list_change,omitempty" jsonschema:"description=Restart the source when explicit_path_list changes"`
	RawKindFilter            []string `yaml:"raw_kind_filter,omitempty" toml:"raw_kind_filter,omitempty" json:"raw_kind_filter,omitempty" validate:"dive,rawkind" jsonschema:"description=Raw kinds the source should report (inotifywait --event names)"`
	TouchGeneratesAttributes bool     `yaml:"touch_generates_attributes,omitempty" toml:"touch_generates_attributes,omitempty" json:"touch_generates_attributes,omitempty" jsonschema:"description=Report touch-like updates as attributes instead of change"`
	BufferSize               int      `yaml:"buffer_size,omitempty" toml:"buffer_size,omitempty" json:"buffer_size,omitempty" validate:"gte=0" jsonschema:"description=Subscriber channel capacity (default: 100)"`

	Source      SourceConfig      `yaml:"source,omitempty" toml:"source,omitempty" json:"source,omitempty" jsonschema:"description=Raw event source process settings"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics,omitempty" toml:"diagnostics,omitempty" json:"diagnostics,omitempty" jsonschema:"description=Classifier diagnostics"`
	Journal     JournalConfig     `yaml:"journal,omitempty" toml:"journal,omitempty" json:"journal,omitempty" jsonschema:"description=Event journal settings"`
	Server      ServerConfig      `yaml:"server,omitempty" toml:"server,omitempty" json:"server,omitempty" jsonschema:"description=Event stream server settings"`

	// Extensions captures all other top-level keys for extensibility.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" json:"-" jsonschema:"-"`
}

// SourceConfig configures the inotifywait process.
type SourceConfig struct {
	Binary    string   `yaml:"binary,omitempty" toml:"binary,omitempty" json:"binary,omitempty" jsonschema:"description=Path to the inotifywait binary (default: inotifywait)"`
	Args      []string `yaml:"args,omitempty" toml:"args,omitempty" json:"args,omitempty" jsonschema:"description=Extra arguments inserted before the watched path"`
	Env       []string `yaml:"env,omitempty" toml:"env,omitempty" json:"env,omitempty" validate:"dive,contains==" jsonschema:"description=Extra KEY=VALUE environment entries"`
	Dir       string   `yaml:"dir,omitempty" toml:"dir,omitempty" json:"dir,omitempty" jsonschema:"description=Working directory for the source process"`
	StopGrace string   `yaml:"stop_grace,omitempty" toml:"stop_grace,omitempty" json:"stop_grace,omitempty" validate:"omitempty,duration" jsonschema:"description=Time between SIGTERM and SIGKILL (default: 2s)"`
}

// DiagnosticsConfig controls what the classifier reports about itself.
type DiagnosticsConfig struct {
	ReportUnmatched bool    `yaml:"report_unmatched,omitempty" toml:"report_unmatched,omitempty" json:"report_unmatched,omitempty" jsonschema:"description=Report patterns discarded without an event as errors"`
	LogRate         float64 `yaml:"log_rate,omitempty" toml:"log_rate,omitempty" json:"log_rate,omitempty" validate:"gte=0" jsonschema:"description=Maximum debug logs per second for discarded patterns (0: unlimited)"`
}

// JournalConfig configures the SQLite event journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled,omitempty" toml:"enabled,omitempty" json:"enabled,omitempty" jsonschema:"description=Record semantic events"`
	Path    string `yaml:"path,omitempty" toml:"path,omitempty" json:"path,omitempty" jsonschema:"description=Journal database path (default: state dir)"`
}

// ServerConfig configures the event stream server.
type ServerConfig struct {
	Socket string `yaml:"socket,omitempty" toml:"socket,omitempty" json:"socket,omitempty" jsonschema:"description=Unix socket path (default: runtime dir)"`
}

const (
	DefaultBinary     = "inotifywait"
	DefaultBufferSize = 100
	DefaultStopGrace  = 2 * time.Second
)

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Recursive == nil {
		trueVal := true
		c.Recursive = &trueVal
	}
	if c.BufferSize == 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.Source.Binary == "" {
		c.Source.Binary = DefaultBinary
	}
	if c.Source.StopGrace == "" {
		c.Source.StopGrace = DefaultStopGrace.String()
	}
}

// ExpandPaths resolves ~, environment variables and relative paths in
// every path-valued option.
func (c *Config) ExpandPaths() error {
	return pathutil.ExpandAll(&c.Path, &c.ExplicitPathList, &c.Journal.Path, &c.Server.Socket, &c.Source.Dir)
}

// IsRecursive reports the effective recursive setting.
func (c *Config) IsRecursive() bool {
	return c.Recursive == nil || *c.Recursive
}

// StopGraceDuration parses StopGrace, falling back to the default.
func (s SourceConfig) StopGraceDuration() time.Duration {
	if s.StopGrace == "" {
		return DefaultStopGrace
	}
	d, err := time.ParseDuration(s.StopGrace)
	if err != nil || d < 0 {
		return DefaultStopGrace
	}
	return d
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded notify.yml into the provided target struct. The target must be a pointer.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// It's not an error if the key doesn't exist.
		// The target struct will simply remain zero-valued.
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
