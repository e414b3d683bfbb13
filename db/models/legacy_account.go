package models

import (
	"time"

	"gorm.io/gorm"
)

func init() {
	registerModel(&LegacyAccount{})
}

// LegacyAccount is the monolithic record the split stores are migrated
// from. It is retained through the transition window so reads can be rolled
// back, and dropped only by a separately gated cleanup.
type LegacyAccount struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;size:255"`
	DisplayName  string `gorm:"size:255"`
	Slug         string `gorm:"size:64"`
	PasswordHash string `gorm:"size:255"`

	Provider        string `gorm:"size:64"`
	ProviderSubject string `gorm:"size:255"`

	RealName  string `gorm:"size:255"`
	Bio       string `gorm:"type:text"`
	AvatarURL string `gorm:"size:500"`
	Location  string `gorm:"size:255"`
	Website   string `gorm:"size:255"`

	PublicProfile bool   `gorm:"default:true"`
	ShowEmail     bool   `gorm:"default:false"`
	Theme         string `gorm:"size:16;default:'system'"`
	Locale        string `gorm:"size:16;default:'en'"`

	Verified bool   `gorm:"default:false"`
	Roles    string `gorm:"size:255"`

	MigratedAt *time.Time
}

// HasProfileData reports whether any profile field is set, deciding if a
// profile row is created during backfill.
func (l *LegacyAccount) HasProfileData() bool {
	return l.RealName != "" || l.Bio != "" || l.AvatarURL != "" || l.Location != "" || l.Website != ""
}
