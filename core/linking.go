package core

import "go.accountd.dev/accountd/db/models"

const LINKING_SERVICE = "linking"

// ProviderIdentity is the normalized callback payload handed over by the
// transport layer after a successful provider round trip. It contains facts
// only, no decisions.
type ProviderIdentity struct {
	Provider    string // e.g. "google"
	Subject     string // provider-scoped unique user identifier
	Email       string // email asserted by the provider
	DisplayName string
	AvatarURL   string
}

type AccountLinkingService interface {
	// ResolveCallback evaluates a provider callback against current state
	// and returns the authenticated account. A previously linked identity
	// always wins over an email match. A new account is created when the
	// email is unknown; linking to an existing account requires its email to
	// be verified, otherwise a security violation error is returned before
	// any row is written.
	ResolveCallback(identity ProviderIdentity) (*models.Account, error)

	Service
}
