package config

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/grovetools/notify/errors"
)

// rawKindNames are the event names inotifywait accepts for --event.
var rawKindNames = map[string]struct{}{
	"access": {}, "modify": {}, "attrib": {}, "close_write": {}, "close_nowrite": {},
	"close": {}, "open": {}, "moved_to": {}, "moved_from": {}, "move": {},
	"move_self": {}, "create": {}, "delete": {}, "delete_self": {}, "unmount": {},
}

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

func getStructValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("rawkind", func(fl validator.FieldLevel) bool {
			_, ok := rawKindNames[strings.ToLower(fl.Field().String())]
			return ok
		})
		_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
			d, err := time.ParseDuration(fl.Field().String())
			return err == nil && d >= 0
		})
		structValidator = v
	})
	return structValidator
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := getStructValidator().Struct(c); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return errors.Wrap(err, errors.ErrCodeConfigValidation,
				fmt.Sprintf("invalid value for '%s' (%s)", first.Namespace(), first.Tag())).
				WithDetail("field", first.Namespace()).
				WithDetail("value", fmt.Sprintf("%v", first.Value()))
		}
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid configuration")
	}

	for _, pattern := range c.ExcludePatterns {
		if _, err := regexp.CompilePOSIX(pattern); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("invalid exclude pattern: %s", pattern)).
				WithDetail("pattern", pattern)
		}
	}

	if c.ReloadOnListChange && c.ExplicitPathList == "" {
		return errors.New(errors.ErrCodeConfigValidation, "reload_on_list_change requires explicit_path_list")
	}

	return nil
}

// ValidateWatch checks the settings a watch session cannot start without.
func (c *Config) ValidateWatch() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Path == "" && c.ExplicitPathList == "" {
		return errors.New(errors.ErrCodeConfigValidation, "a path or explicit_path_list is required")
	}
	return nil
}
