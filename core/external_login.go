package core

import "go.accountd.dev/accountd/db/models"

const EXTERNAL_LOGIN_SERVICE = "external_login"

type ExternalLoginService interface {
	// Link records a provider identity for the account. The pair
	// (provider, subject) is globally unique; a conflict error is returned
	// if it is already linked anywhere in the system.
	Link(accountID uint, provider string, subject string, providerEmail string) (*models.ExternalLogin, error)

	// ByProviderIdentity looks up a link by (provider, subject).
	ByProviderIdentity(provider string, subject string) (*models.ExternalLogin, error)

	// ByAccount returns all links for the account.
	ByAccount(accountID uint) ([]models.ExternalLogin, error)

	// Unlink removes the account's link for the given provider. It is
	// rejected when the link is the account's last remaining authentication
	// method.
	Unlink(accountID uint, provider string) error

	// Delete removes a link by ID.
	Delete(id uint) error

	Service
}
