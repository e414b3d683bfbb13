package core

import "go.accountd.dev/accountd/db/models"

const CREDENTIAL_SERVICE = "credential"

type CredentialService interface {
	// Create stores a password credential for the account. It fails with a
	// conflict error if one already exists; callers replace explicitly.
	Create(accountID uint, passwordHash string) (*models.Credential, error)

	// ByAccount returns the account's credential, if any.
	ByAccount(accountID uint) (*models.Credential, error)

	// Exists reports whether a password is set without fetching the hash.
	Exists(accountID uint) (bool, error)

	// Replace overwrites the stored hash and stamps a fresh hash-updated
	// timestamp.
	Replace(accountID uint, newHash string) error

	// Remove deletes the credential. It is rejected when the credential is
	// the account's last remaining authentication method.
	Remove(accountID uint) error

	// SetPassword hashes and stores a new password, creating or replacing
	// the credential as needed.
	SetPassword(accountID uint, password string) error

	// VerifyPassword checks a plaintext password against the stored hash.
	VerifyPassword(accountID uint, password string) error

	// HashPassword hashes the provided password using bcrypt.
	HashPassword(password string) (string, error)

	Service
}
