package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grovetools/notify/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"known raw kinds", func(c *Config) { c.RawKindFilter = []string{"create", "CLOSE_WRITE", "move"} }, false},
		{"unknown raw kind", func(c *Config) { c.RawKindFilter = []string{"rename"} }, true},
		{"bad env entry", func(c *Config) { c.Source.Env = []string{"NOEQUALS"} }, true},
		{"bad stop grace", func(c *Config) { c.Source.StopGrace = "soon" }, true},
		{"negative log rate", func(c *Config) { c.Diagnostics.LogRate = -1 }, true},
		{"bad exclude regex", func(c *Config) { c.ExcludePatterns = []string{"("} }, true},
		{"reload without list", func(c *Config) { c.ReloadOnListChange = true }, true},
		{"reload with list", func(c *Config) {
			c.ReloadOnListChange = true
			c.ExplicitPathList = "/etc/notify.list"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrCodeConfigValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateWatch(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.ValidateWatch())

	cfg.Path = "/srv"
	assert.NoError(t, cfg.ValidateWatch())

	cfg = Default()
	cfg.ExplicitPathList = "/etc/notify.list"
	assert.NoError(t, cfg.ValidateWatch())
}
