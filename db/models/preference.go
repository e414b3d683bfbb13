package models

import (
	"gorm.io/gorm"
)

func init() {
	registerModel(&Preferences{})
}

// Preferences exists exactly once per account, created in the same
// transaction as the account row itself.
type Preferences struct {
	gorm.Model
	AccountID     uint   `gorm:"uniqueIndex"`
	PublicProfile bool   `gorm:"default:true"`
	ShowEmail     bool   `gorm:"default:false"`
	Theme         string `gorm:"size:16;default:'system'"`
	Locale        string `gorm:"size:16;default:'en'"`
}
