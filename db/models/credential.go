package models

import (
	"time"

	"gorm.io/gorm"
)

func init() {
	registerModel(&Credential{})
}

// Credential holds password authentication material, at most one per
// account. The hash never leaves the authentication boundary.
type Credential struct {
	gorm.Model
	AccountID     uint   `gorm:"uniqueIndex"`
	PasswordHash  string `gorm:"size:255"`
	HashUpdatedAt time.Time
}
