package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/grovetools/notify/errors"
	"github.com/grovetools/notify/schema"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// ConfigNames are searched, in order, in each directory.
var ConfigNames = []string{
	"notify.yml",
	"notify.yaml",
	".notify.yml",
	".notify.yaml",
	"notify.toml",
}

// Load reads and parses a notify configuration file. Files ending in .toml
// are parsed as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		cfg, err := LoadFromTOML(data)
		if err != nil {
			return nil, withPath(err, path)
		}
		return cfg, nil
	}

	cfg, err := LoadFromBytes(data)
	if err != nil {
		return nil, withPath(err, path)
	}
	return cfg, nil
}

func withPath(err error, path string) error {
	if notifyErr, ok := err.(*errors.NotifyError); ok {
		return notifyErr.WithDetail("path", path)
	}
	return err
}

// LoadDefault finds and loads the configuration for the current directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}

	return LoadFrom(cwd)
}

// LoadFrom loads the configuration found from startDir.
func LoadFrom(startDir string) (*Config, error) {
	return LoadFromWithLogger(startDir, logrus.New())
}

// LoadFromWithLogger loads the configuration found from startDir and logs
// where it came from.
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	path, err := FindConfigFile(startDir)
	if err != nil {
		return nil, err
	}
	logger.WithField("path", path).Debug("Loading configuration")

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		configData, err := yaml.Marshal(cfg)
		if err == nil {
			logger.Debugf("Loaded configuration:\n%s", string(configData))
		}
	}
	return cfg, nil
}

// LoadOrDefault loads the configuration at path, or the one found from the
// current directory when path is empty. A missing configuration yields
// the defaults.
func LoadOrDefault(path string) (*Config, error) {
	var cfg *Config
	var err error
	if path != "" {
		cfg, err = Load(path)
	} else {
		cfg, err = LoadDefault()
	}
	if errors.Is(err, errors.ErrCodeConfigNotFound) && path == "" {
		return Default(), nil
	}
	return cfg, err
}

// Default returns a configuration with only defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// LoadFromBytes parses YAML configuration from byte array
func LoadFromBytes(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	// Checking the raw document first reports every bad key and type,
	// where decoding would stop at the first.
	validator, err := schema.Shared()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
	}
	if err := validator.ValidateYAML([]byte(expanded)); err != nil {
		return nil, schemaError(err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
	}

	return finish(&config)
}

// LoadFromTOML parses TOML configuration. Unknown tables are kept as
// extensions just like in YAML.
func LoadFromTOML(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var generic map[string]interface{}
	if err := toml.Unmarshal([]byte(expanded), &generic); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
	}

	// Round-trip through YAML so the inline extensions map is filled.
	asYAML, err := yaml.Marshal(generic)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to convert TOML configuration")
	}

	var config Config
	if err := yaml.Unmarshal(asYAML, &config); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode TOML configuration")
	}

	return finish(&config)
}

// schemaError wraps a schema failure, keeping each violation as a detail.
func schemaError(err error) error {
	wrapped := errors.Wrap(err, errors.ErrCodeConfigInvalid, "schema validation failed")
	var verr *schema.ValidationError
	if stderrors.As(err, &verr) {
		for _, v := range verr.Violations {
			wrapped = wrapped.WithDetail(v.Location, v.Message)
		}
	}
	return wrapped
}

func finish(config *Config) (*Config, error) {
	// Validate against schema
	validator, err := schema.Shared()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
	}
	if err := validator.Validate(config); err != nil {
		return nil, schemaError(err)
	}

	// Set defaults
	config.SetDefaults()

	if err := config.ExpandPaths(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to expand paths")
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err // Already returns structured error from validation
	}

	return config, nil
}

// FindConfigFile searches for notify configuration files with the following precedence:
// 1. Current directory up to filesystem root
// 2. XDG config directory (~/.config/notify/notify.yml)
func FindConfigFile(startDir string) (string, error) {
	// 1. Search from current directory up to filesystem root
	dir := startDir
	for {
		for _, name := range ConfigNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	// 2. Check XDG config directory
	if xdgConfigPath := getXDGConfigPath(); xdgConfigPath != "" {
		if info, err := os.Stat(xdgConfigPath); err == nil && !info.IsDir() {
			return xdgConfigPath, nil
		}
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}

// getXDGConfigPath returns the XDG config path for notify
func getXDGConfigPath() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "notify", "notify.yml")
	}

	// Fall back to ~/.config
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "notify", "notify.yml")
	}

	return ""
}
