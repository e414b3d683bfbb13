package config

import "time"

var _ Defaults = (*MigrationConfig)(nil)

// MigrationConfig controls the legacy-record transition window. Dual-write
// mirrors every store write into the legacy representation so the system can
// roll back instantly; the verify interval schedules periodic consistency
// checks while the mirror is active.
type MigrationConfig struct {
	DualWrite      bool          `mapstructure:"dual_write"`
	VerifyInterval time.Duration `mapstructure:"verify_interval"`
}

func (m MigrationConfig) Defaults() map[string]any {
	return map[string]any{
		"dual_write":      false,
		"verify_interval": "15m",
	}
}
