package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.accountd.dev/accountd/core"
)

func TestLinkAndLookup(t *testing.T) {
	ctx := newTestContext(t)

	account := createTestAccount(t, ctx, "alice@example.com")

	login, err := externalLogins(ctx).Link(account.ID, "github", "gh-100", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, login.AccountID)
	assert.False(t, login.LinkedAt.IsZero())

	found, err := externalLogins(ctx).ByProviderIdentity("github", "gh-100")
	require.NoError(t, err)
	assert.Equal(t, login.ID, found.ID)

	_, err = externalLogins(ctx).ByProviderIdentity("github", "gh-999")
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrKeyExternalLoginNotFound))
}

func TestProviderIdentityUniqueAcrossAccounts(t *testing.T) {
	ctx := newTestContext(t)

	first := createTestAccount(t, ctx, "first@example.com")
	second := createTestAccount(t, ctx, "second@example.com")

	_, err := externalLogins(ctx).Link(first.ID, "google", "g-42", "first@example.com")
	require.NoError(t, err)

	// The same provider identity cannot be claimed by another account.
	_, err = externalLogins(ctx).Link(second.ID, "google", "g-42", "second@example.com")
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrKeyProviderIdentityTaken))
	assert.True(t, core.IsErrorClass(err, core.ErrorClassConflict))

	// A different subject from the same provider is fine.
	_, err = externalLogins(ctx).Link(second.ID, "google", "g-43", "second@example.com")
	require.NoError(t, err)
}

func TestByAccountOrdering(t *testing.T) {
	ctx := newTestContext(t)

	account := createTestAccount(t, ctx, "multi@example.com")

	_, err := externalLogins(ctx).Link(account.ID, "github", "gh-1", "multi@example.com")
	require.NoError(t, err)
	_, err = externalLogins(ctx).Link(account.ID, "google", "g-1", "multi@example.com")
	require.NoError(t, err)

	logins, err := externalLogins(ctx).ByAccount(account.ID)
	require.NoError(t, err)
	require.Len(t, logins, 2)
	assert.Equal(t, "github", logins[0].Provider)
	assert.Equal(t, "google", logins[1].Provider)
}

func TestUnlink(t *testing.T) {
	ctx := newTestContext(t)

	account := createTestAccount(t, ctx, "bob@example.com")

	_, err := externalLogins(ctx).Link(account.ID, "github", "gh-200", "bob@example.com")
	require.NoError(t, err)

	require.NoError(t, externalLogins(ctx).Unlink(account.ID, "github"))

	logins, err := externalLogins(ctx).ByAccount(account.ID)
	require.NoError(t, err)
	assert.Empty(t, logins)

	err = externalLogins(ctx).Unlink(account.ID, "github")
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrKeyExternalLoginNotFound))
}

func TestUnlinkLastAuthMethod(t *testing.T) {
	ctx := newTestContext(t)

	// An account provisioned from a provider callback has the link as its
	// only authentication method.
	account, err := linking(ctx).ResolveCallback(core.ProviderIdentity{
		Provider: "google",
		Subject:  "g-solo",
		Email:    "solo@example.com",
	})
	require.NoError(t, err)

	err = externalLogins(ctx).Unlink(account.ID, "google")
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrKeyLastAuthMethod))

	// Once a password is set the link is no longer the last method.
	require.NoError(t, credentials(ctx).SetPassword(account.ID, "fresh-password-1"))
	require.NoError(t, externalLogins(ctx).Unlink(account.ID, "google"))
}
