package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.accountd.dev/accountd/core"
	"go.accountd.dev/accountd/db/models"
)

func TestResolveCallbackExistingLinkWins(t *testing.T) {
	ctx := newTestContext(t)

	account := createTestAccount(t, ctx, "alice@example.com")
	require.NoError(t, accounts(ctx).MarkVerified(account.ID))

	first, err := linking(ctx).ResolveCallback(core.ProviderIdentity{
		Provider: "github",
		Subject:  "gh-1",
		Email:    "alice@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, account.ID, first.ID)

	// The provider now asserts a different email for the same subject. The
	// established link wins; no new account appears and no email matching
	// happens.
	again, err := linking(ctx).ResolveCallback(core.ProviderIdentity{
		Provider: "github",
		Subject:  "gh-1",
		Email:    "changed@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, account.ID, again.ID)

	var total int64
	require.NoError(t, ctx.DB().Model(&models.Account{}).Count(&total).Error)
	assert.Equal(t, int64(1), total)
}

func TestResolveCallbackLinksVerifiedEmailMatch(t *testing.T) {
	ctx := newTestContext(t)

	account := createTestAccount(t, ctx, "bob@example.com")
	require.NoError(t, accounts(ctx).MarkVerified(account.ID))

	resolved, err := linking(ctx).ResolveCallback(core.ProviderIdentity{
		Provider: "google",
		Subject:  "g-77",
		Email:    "bob@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, account.ID, resolved.ID)

	logins, err := externalLogins(ctx).ByAccount(account.ID)
	require.NoError(t, err)
	require.Len(t, logins, 1)
	assert.Equal(t, "google", logins[0].Provider)
	assert.Equal(t, "g-77", logins[0].ProviderSubject)
}

func TestResolveCallbackRejectsUnverifiedEmailMatch(t *testing.T) {
	ctx := newTestContext(t)

	account := createTestAccount(t, ctx, "carol@example.com")

	// The account never verified its email, so a provider asserting the same
	// address must not gain access to it.
	_, err := linking(ctx).ResolveCallback(core.ProviderIdentity{
		Provider: "google",
		Subject:  "g-88",
		Email:    "carol@example.com",
	})
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrKeyUnverifiedEmailLink))
	assert.True(t, core.IsErrorClass(err, core.ErrorClassSecurityViolation))

	// The refusal happens before any row is written.
	logins, err := externalLogins(ctx).ByAccount(account.ID)
	require.NoError(t, err)
	assert.Empty(t, logins)
}

func TestResolveCallbackProvisionsAccount(t *testing.T) {
	ctx := newTestContext(t)

	account, err := linking(ctx).ResolveCallback(core.ProviderIdentity{
		Provider:    "github",
		Subject:     "gh-new",
		Email:       "newcomer@example.com",
		DisplayName: "New Comer",
		AvatarURL:   "https://example.com/avatar.png",
	})
	require.NoError(t, err)

	assert.Equal(t, "newcomer@example.com", account.Email)
	assert.Equal(t, "New Comer", account.DisplayName)
	assert.Equal(t, "new-comer", account.Slug)
	// The provider asserted the address, so the account starts verified.
	assert.True(t, account.Verified)

	hasPassword, err := credentials(ctx).Exists(account.ID)
	require.NoError(t, err)
	assert.False(t, hasPassword)

	_, err = preferences(ctx).ByAccount(account.ID)
	require.NoError(t, err)

	// Provider display attributes seed the profile.
	profile, err := profiles(ctx).ByAccount(account.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Comer", profile.RealName)
	assert.Equal(t, "https://example.com/avatar.png", profile.AvatarURL)

	// The same callback later resolves to the same account.
	again, err := linking(ctx).ResolveCallback(core.ProviderIdentity{
		Provider: "github",
		Subject:  "gh-new",
		Email:    "newcomer@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, account.ID, again.ID)
}

func TestResolveCallbackProvisionsProfileFromName(t *testing.T) {
	ctx := newTestContext(t)

	// A callback can carry a display name and no avatar; the profile is
	// still created and carries the provider-supplied name.
	account, err := linking(ctx).ResolveCallback(core.ProviderIdentity{
		Provider:    "google",
		Subject:     "g-1",
		Email:       "bea@example.com",
		DisplayName: "Bea Example",
	})
	require.NoError(t, err)

	profile, err := profiles(ctx).ByAccount(account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bea Example", profile.RealName)
	assert.Empty(t, profile.AvatarURL)
}

func TestResolveCallbackProvisionWithoutDisplayName(t *testing.T) {
	ctx := newTestContext(t)

	account, err := linking(ctx).ResolveCallback(core.ProviderIdentity{
		Provider: "google",
		Subject:  "g-anon",
		Email:    "anon@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "anon@example.com", account.DisplayName)
	assert.NotEmpty(t, account.Slug)

	// Bare provider facts seed no profile at all.
	_, err = profiles(ctx).ByAccount(account.ID)
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrKeyProfileNotFound))
}

func TestResolveCallbackRaceReturnsWinner(t *testing.T) {
	ctx := newTestContext(t)

	winner := createTestAccount(t, ctx, "winner@example.com")
	require.NoError(t, accounts(ctx).MarkVerified(winner.ID))

	_, err := linking(ctx).ResolveCallback(core.ProviderIdentity{
		Provider: "google",
		Subject:  "g-race",
		Email:    "winner@example.com",
	})
	require.NoError(t, err)

	loser := createTestAccount(t, ctx, "loser@example.com")
	require.NoError(t, accounts(ctx).MarkVerified(loser.ID))
	loser, err = accounts(ctx).AccountByID(loser.ID)
	require.NoError(t, err)

	// A concurrent callback can pass the initial link lookup and then lose
	// the insert to the unique index. Drive the post-lookup path directly:
	// the loser must get the winning account back, not an error.
	svc, ok := linking(ctx).(*AccountLinkingServiceDefault)
	require.True(t, ok)

	resolved, err := svc.linkExisting(loser, core.ProviderIdentity{
		Provider: "google",
		Subject:  "g-race",
		Email:    "loser@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, winner.ID, resolved.ID)

	logins, err := externalLogins(ctx).ByAccount(loser.ID)
	require.NoError(t, err)
	assert.Empty(t, logins)
}
