package models

import (
	"time"

	"gorm.io/gorm"
)

func init() {
	registerModel(&ExternalLogin{})
}

// ExternalLogin binds a provider identity to an account. The composite
// unique index on (provider, provider_subject) is the backstop that keeps a
// third-party identity from being claimed by two accounts.
type ExternalLogin struct {
	gorm.Model
	AccountID       uint   `gorm:"index"`
	Provider        string `gorm:"size:64;uniqueIndex:idx_provider_subject"`
	ProviderSubject string `gorm:"size:255;uniqueIndex:idx_provider_subject"`
	ProviderEmail   string `gorm:"size:255"`
	LinkedAt        time.Time
}
