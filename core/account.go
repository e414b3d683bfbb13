package core

import "go.accountd.dev/accountd/db/models"

const ACCOUNT_SERVICE = "account"

type AccountService interface {
	// CreateAccount registers a new account with a password credential and
	// default preferences, all created atomically. It fails with a conflict
	// error if the email or slug is already taken.
	CreateAccount(email string, displayName string, slug string, password string) (*models.Account, error)

	// AccountByID looks up an account by its internal ID.
	AccountByID(id uint) (*models.Account, error)

	// AccountByEmail looks up an account by email. The lookup is
	// case-insensitive.
	AccountByEmail(email string) (*models.Account, error)

	// AccountBySlug looks up an account by its public slug.
	AccountBySlug(slug string) (*models.Account, error)

	// EmailExists checks if an email already exists in the system.
	EmailExists(email string) (bool, *models.Account, error)

	// SlugExists checks if a slug already exists in the system.
	SlugExists(slug string) (bool, *models.Account, error)

	// UpdateAccount partially updates the mutable account fields. The email
	// address is immutable after creation.
	UpdateAccount(id uint, update AccountUpdate) error

	// MarkVerified flags the account email as verified.
	MarkVerified(id uint) error

	// UpdateLastLogin stamps the last login time and IP for the account.
	UpdateLastLogin(id uint, ip string) error

	// DeleteAccount removes the account and every dependent record
	// (credential, external logins, profile, preferences) in one transaction.
	DeleteAccount(id uint) error

	Service
}

// AccountUpdate carries the mutable account fields for a partial update.
// Nil fields are left unchanged.
type AccountUpdate struct {
	DisplayName *string
	Slug        *string
	Active      *bool
}
