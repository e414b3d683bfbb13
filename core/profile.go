package core

import "go.accountd.dev/accountd/db/models"

const PROFILE_SERVICE = "profile"

type ProfileService interface {
	// ByAccount returns the account's profile, or a not-found error when no
	// profile field was ever set.
	ByAccount(accountID uint) (*models.Profile, error)

	// Set applies the given fields, creating the profile row lazily on
	// first use.
	Set(accountID uint, update ProfileUpdate) (*models.Profile, error)

	// Delete removes the profile row, if present.
	Delete(accountID uint) error

	Service
}

// ProfileUpdate carries optional profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	RealName  *string
	Bio       *string
	AvatarURL *string
	Location  *string
	Website   *string
}
