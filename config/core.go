package config

import "errors"

var _ Defaults = (*CoreConfig)(nil)
var _ Validator = (*CoreConfig)(nil)

type CoreConfig struct {
	DB          DatabaseConfig  `mapstructure:"db"`
	Domain      string          `mapstructure:"domain"`
	ServiceName string          `mapstructure:"service_name"`
	Log         LogConfig       `mapstructure:"log"`
	Migration   MigrationConfig `mapstructure:"migration"`
}

func (c CoreConfig) Validate() error {
	if c.Domain == "" {
		return errors.New("core.domain is required")
	}
	if c.ServiceName == "" {
		return errors.New("core.service_name is required")
	}

	return nil
}

func (c CoreConfig) Defaults() map[string]any {
	return map[string]any{
		"service_name": "accountd",
	}
}
