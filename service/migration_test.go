package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.accountd.dev/accountd/core"
	"go.accountd.dev/accountd/db/models"
)

func seedLegacyAccounts(t *testing.T, ctx core.Context) []models.LegacyAccount {
	t.Helper()

	legacy := []models.LegacyAccount{
		{
			Email:        "old-password@example.com",
			DisplayName:  "Old Password User",
			Slug:         "old-password-user",
			PasswordHash: "$2a$10$legacyhashlegacyhashlegacyhash",
			Verified:     true,
			Roles:        "admin",
			RealName:     "Olga Passworth",
			Bio:          "long-time user",
			Theme:        "dark",
			Locale:       "de",
		},
		{
			Email:           "old-oauth@example.com",
			DisplayName:     "Old OAuth User",
			Provider:        "github",
			ProviderSubject: "gh-legacy-1",
			PublicProfile:   true,
			Theme:           "system",
			Locale:          "en",
		},
	}

	for i := range legacy {
		require.NoError(t, ctx.DB().Create(&legacy[i]).Error)
	}

	return legacy
}

func TestBackfill(t *testing.T) {
	ctx := newTestContext(t)
	seedLegacyAccounts(t, ctx)

	stats, err := migration(ctx).Backfill()
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.Accounts)
	assert.Equal(t, int64(1), stats.Credentials)
	assert.Equal(t, int64(1), stats.ExternalLogins)
	assert.Equal(t, int64(1), stats.Profiles)
	assert.Equal(t, int64(2), stats.Preferences)
	assert.Zero(t, stats.Skipped)

	// The password user came over with credential, profile and preferences.
	account, err := accounts(ctx).AccountByEmail("old-password@example.com")
	require.NoError(t, err)
	assert.True(t, account.Verified)
	assert.Equal(t, "admin", account.Roles)
	assert.NotEmpty(t, account.PublicID)

	credential, err := credentials(ctx).ByAccount(account.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$legacyhashlegacyhashlegacyhash", credential.PasswordHash)

	profile, err := profiles(ctx).ByAccount(account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Olga Passworth", profile.RealName)

	prefs, err := preferences(ctx).ByAccount(account.ID)
	require.NoError(t, err)
	assert.Equal(t, "dark", prefs.Theme)
	assert.Equal(t, "de", prefs.Locale)

	// The OAuth user has a link and no credential or profile.
	oauthAccount, err := accounts(ctx).AccountByEmail("old-oauth@example.com")
	require.NoError(t, err)

	_, err = externalLogins(ctx).ByProviderIdentity("github", "gh-legacy-1")
	require.NoError(t, err)

	hasPassword, err := credentials(ctx).Exists(oauthAccount.ID)
	require.NoError(t, err)
	assert.False(t, hasPassword)

	_, err = profiles(ctx).ByAccount(oauthAccount.ID)
	assert.True(t, core.IsErrorType(err, core.ErrKeyProfileNotFound))
}

func TestBackfillIdempotent(t *testing.T) {
	ctx := newTestContext(t)
	seedLegacyAccounts(t, ctx)

	_, err := migration(ctx).Backfill()
	require.NoError(t, err)

	// Re-running after completion migrates nothing and duplicates nothing.
	stats, err := migration(ctx).Backfill()
	require.NoError(t, err)
	assert.Zero(t, stats.Accounts)
	assert.Equal(t, int64(2), stats.Skipped)

	var total int64
	require.NoError(t, ctx.DB().Model(&models.Account{}).Count(&total).Error)
	assert.Equal(t, int64(2), total)
}

func TestVerifyDetectsDrift(t *testing.T) {
	ctx := newTestContext(t)
	seedLegacyAccounts(t, ctx)

	_, err := migration(ctx).Backfill()
	require.NoError(t, err)

	report, err := migration(ctx).Verify()
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Equal(t, int64(2), report.LegacyCount)
	assert.Equal(t, int64(2), report.AccountCount)

	// Drift one field and verification must flag it.
	require.NoError(t, ctx.DB().Model(&models.Account{}).
		Where("email = ?", "old-password@example.com").
		Update("display_name", "Renamed Elsewhere").Error)

	report, err = migration(ctx).Verify()
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.Contains(t, report.Mismatches, "old-password@example.com: display_name")
}

func TestCutoverBlockedByMismatch(t *testing.T) {
	ctx := newTestContext(t, withDualWrite)
	seedLegacyAccounts(t, ctx)

	_, err := migration(ctx).Backfill()
	require.NoError(t, err)

	require.NoError(t, ctx.DB().Model(&models.Account{}).
		Where("email = ?", "old-oauth@example.com").
		Update("display_name", "Diverged").Error)

	err = migration(ctx).Cutover()
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrKeyMigrationVerifyFailed))
	assert.True(t, migration(ctx).DualWriteEnabled())
}

func TestCutover(t *testing.T) {
	ctx := newTestContext(t, withDualWrite)
	seedLegacyAccounts(t, ctx)

	_, err := migration(ctx).Backfill()
	require.NoError(t, err)

	assert.True(t, migration(ctx).DualWriteEnabled())
	require.NoError(t, migration(ctx).Cutover())
	assert.False(t, migration(ctx).DualWriteEnabled())

	// Legacy rows survive cutover for rollback.
	var legacyCount int64
	require.NoError(t, ctx.DB().Model(&models.LegacyAccount{}).Count(&legacyCount).Error)
	assert.Equal(t, int64(2), legacyCount)

	// Writes after cutover no longer touch the legacy table.
	createTestAccount(t, ctx, "post-cutover@example.com")

	var mirrored int64
	require.NoError(t, ctx.DB().Model(&models.LegacyAccount{}).
		Where("email = ?", "post-cutover@example.com").Count(&mirrored).Error)
	assert.Zero(t, mirrored)
}

func TestDualWriteMirrorsAccountLifecycle(t *testing.T) {
	ctx := newTestContext(t, withDualWrite)

	account := createTestAccount(t, ctx, "mirrored@example.com")

	var legacy models.LegacyAccount
	require.NoError(t, ctx.DB().Where("email = ?", "mirrored@example.com").First(&legacy).Error)
	assert.Equal(t, account.DisplayName, legacy.DisplayName)
	assert.Equal(t, account.Slug, legacy.Slug)
	assert.NotEmpty(t, legacy.PasswordHash)

	// Updates flow through.
	newName := "Mirror Image"
	require.NoError(t, accounts(ctx).UpdateAccount(account.ID, core.AccountUpdate{DisplayName: &newName}))
	require.NoError(t, accounts(ctx).MarkVerified(account.ID))

	require.NoError(t, ctx.DB().Where("email = ?", "mirrored@example.com").First(&legacy).Error)
	assert.Equal(t, "Mirror Image", legacy.DisplayName)
	assert.True(t, legacy.Verified)

	// The two representations agree.
	report, err := migration(ctx).Verify()
	require.NoError(t, err)
	assert.True(t, report.Clean(), "mismatches: %v", report.Mismatches)

	// Deletion removes the mirror row with the account.
	require.NoError(t, accounts(ctx).DeleteAccount(account.ID))

	var count int64
	require.NoError(t, ctx.DB().Model(&models.LegacyAccount{}).
		Where("email = ?", "mirrored@example.com").Count(&count).Error)
	assert.Zero(t, count)
}

func TestDualWriteMirrorsStores(t *testing.T) {
	ctx := newTestContext(t, withDualWrite)

	account := createTestAccount(t, ctx, "stores@example.com")

	_, err := externalLogins(ctx).Link(account.ID, "github", "gh-m1", "stores@example.com")
	require.NoError(t, err)

	realName := "Store Keeper"
	_, err = profiles(ctx).Set(account.ID, core.ProfileUpdate{RealName: &realName})
	require.NoError(t, err)

	theme := "dark"
	require.NoError(t, preferences(ctx).Update(account.ID, core.PreferencesUpdate{Theme: &theme}))

	var legacy models.LegacyAccount
	require.NoError(t, ctx.DB().Where("email = ?", "stores@example.com").First(&legacy).Error)
	assert.Equal(t, "github", legacy.Provider)
	assert.Equal(t, "gh-m1", legacy.ProviderSubject)
	assert.Equal(t, "Store Keeper", legacy.RealName)
	assert.Equal(t, "dark", legacy.Theme)

	report, err := migration(ctx).Verify()
	require.NoError(t, err)
	assert.True(t, report.Clean(), "mismatches: %v", report.Mismatches)

	require.NoError(t, externalLogins(ctx).Unlink(account.ID, "github"))
	require.NoError(t, ctx.DB().Where("email = ?", "stores@example.com").First(&legacy).Error)
	assert.Empty(t, legacy.Provider)
	assert.Empty(t, legacy.ProviderSubject)
}
