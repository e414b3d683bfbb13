package core

import "go.accountd.dev/accountd/db/models"

const PREFERENCE_SERVICE = "preference"

type PreferenceService interface {
	// ByAccount returns the account's preferences. Every account has exactly
	// one preferences row, created with the account itself.
	ByAccount(accountID uint) (*models.Preferences, error)

	// Update applies the given settings.
	Update(accountID uint, update PreferencesUpdate) error

	Service
}

// PreferencesUpdate carries optional settings. Nil fields are left unchanged.
type PreferencesUpdate struct {
	PublicProfile *bool
	ShowEmail     *bool
	Theme         *string
	Locale        *string
}
