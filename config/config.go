package config

import "errors"

var (
	ErrConfigFileNotFound = errors.New("config file not found")
)

type Config struct {
	Core CoreConfig `mapstructure:"core"`
}

// Defaults is implemented by config sections that seed default values.
type Defaults interface {
	Defaults() map[string]any
}

// Validator is implemented by config sections that validate themselves
// after unmarshalling.
type Validator interface {
	Validate() error
}

type Manager interface {
	Init() error
	Config() *Config
	Save() error
	ConfigFile() string
}
