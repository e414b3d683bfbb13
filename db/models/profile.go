package models

import (
	"gorm.io/gorm"
)

func init() {
	registerModel(&Profile{})
}

// Profile carries display attributes not needed for authentication. The row
// is created lazily the first time any field is set, so its absence is a
// meaningful state.
type Profile struct {
	gorm.Model
	AccountID uint   `gorm:"uniqueIndex"`
	RealName  string `gorm:"size:255"`
	Bio       string `gorm:"type:text"`
	AvatarURL string `gorm:"size:500"`
	Location  string `gorm:"size:255"`
	Website   string `gorm:"size:255"`
}
