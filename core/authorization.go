package core

const AUTHORIZATION_SERVICE = "authorization"

// AuthorizationService is the collaborator boundary for verification and
// role data. The identity core consumes these predicates; it does not
// implement verification logic itself.
type AuthorizationService interface {
	// EmailVerified reports whether the account's email has been verified.
	EmailVerified(accountID uint) (bool, error)

	// Roles returns the account's role tags. Tags are opaque to the core.
	Roles(accountID uint) ([]string, error)

	Service
}
