package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.accountd.dev/accountd/core"
)

func TestVerifyPassword(t *testing.T) {
	ctx := newTestContext(t)

	account := createTestAccount(t, ctx, "alice@example.com")

	require.NoError(t, credentials(ctx).VerifyPassword(account.ID, "correct-horse"))

	err := credentials(ctx).VerifyPassword(account.ID, "wrong-password")
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrKeyInvalidPassword))
	assert.True(t, core.IsErrorClass(err, core.ErrorClassValidation))
}

func TestVerifyPasswordNotSet(t *testing.T) {
	ctx := newTestContext(t)

	// Provider-provisioned accounts carry no password credential.
	account, err := linking(ctx).ResolveCallback(core.ProviderIdentity{
		Provider: "google",
		Subject:  "g-9001",
		Email:    "nopass@example.com",
	})
	require.NoError(t, err)

	err = credentials(ctx).VerifyPassword(account.ID, "anything")
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrKeyPasswordNotSet))
}

func TestSetPasswordReplacesHash(t *testing.T) {
	ctx := newTestContext(t)

	account := createTestAccount(t, ctx, "bob@example.com")

	before, err := credentials(ctx).ByAccount(account.ID)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, credentials(ctx).SetPassword(account.ID, "new-password-123"))

	after, err := credentials(ctx).ByAccount(account.ID)
	require.NoError(t, err)
	assert.NotEqual(t, before.PasswordHash, after.PasswordHash)
	assert.True(t, after.HashUpdatedAt.After(before.HashUpdatedAt))

	require.NoError(t, credentials(ctx).VerifyPassword(account.ID, "new-password-123"))
	require.Error(t, credentials(ctx).VerifyPassword(account.ID, "correct-horse"))
}

func TestCreateCredentialConflict(t *testing.T) {
	ctx := newTestContext(t)

	account := createTestAccount(t, ctx, "carol@example.com")

	hash, err := credentials(ctx).HashPassword("another-password")
	require.NoError(t, err)

	_, err = credentials(ctx).Create(account.ID, hash)
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrKeyCredentialExists))
}

func TestRemoveCredentialLastAuthMethod(t *testing.T) {
	ctx := newTestContext(t)

	account := createTestAccount(t, ctx, "dan@example.com")

	// The password is the only way in, removing it would lock the account.
	err := credentials(ctx).Remove(account.ID)
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrKeyLastAuthMethod))

	_, err = externalLogins(ctx).Link(account.ID, "github", "gh-777", "dan@example.com")
	require.NoError(t, err)

	require.NoError(t, credentials(ctx).Remove(account.ID))

	exists, err := credentials(ctx).Exists(account.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReplaceMissingCredential(t *testing.T) {
	ctx := newTestContext(t)

	account, err := linking(ctx).ResolveCallback(core.ProviderIdentity{
		Provider: "google",
		Subject:  "g-1234",
		Email:    "external@example.com",
	})
	require.NoError(t, err)

	hash, err := credentials(ctx).HashPassword("some-password")
	require.NoError(t, err)

	err = credentials(ctx).Replace(account.ID, hash)
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrKeyCredentialNotFound))

	// SetPassword creates the credential when none exists.
	require.NoError(t, credentials(ctx).SetPassword(account.ID, "some-password"))
	require.NoError(t, credentials(ctx).VerifyPassword(account.ID, "some-password"))
}
