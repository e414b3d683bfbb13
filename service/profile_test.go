package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.accountd.dev/accountd/core"
)

func TestProfileLazyCreation(t *testing.T) {
	ctx := newTestContext(t)

	account := createTestAccount(t, ctx, "alice@example.com")

	// No row exists until a field is set.
	_, err := profiles(ctx).ByAccount(account.ID)
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrKeyProfileNotFound))

	bio := "gopher"
	profile, err := profiles(ctx).Set(account.ID, core.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "gopher", profile.Bio)

	fetched, err := profiles(ctx).ByAccount(account.ID)
	require.NoError(t, err)
	assert.Equal(t, "gopher", fetched.Bio)
}

func TestProfilePartialUpdate(t *testing.T) {
	ctx := newTestContext(t)

	account := createTestAccount(t, ctx, "bob@example.com")

	bio := "first bio"
	website := "https://bob.example.com"
	_, err := profiles(ctx).Set(account.ID, core.ProfileUpdate{Bio: &bio, Website: &website})
	require.NoError(t, err)

	// Nil fields stay untouched; set fields change.
	newBio := "second bio"
	_, err = profiles(ctx).Set(account.ID, core.ProfileUpdate{Bio: &newBio})
	require.NoError(t, err)

	fetched, err := profiles(ctx).ByAccount(account.ID)
	require.NoError(t, err)
	assert.Equal(t, "second bio", fetched.Bio)
	assert.Equal(t, "https://bob.example.com", fetched.Website)

	// An explicit empty string clears a field.
	empty := ""
	_, err = profiles(ctx).Set(account.ID, core.ProfileUpdate{Website: &empty})
	require.NoError(t, err)

	fetched, err = profiles(ctx).ByAccount(account.ID)
	require.NoError(t, err)
	assert.Empty(t, fetched.Website)
}

func TestProfileDelete(t *testing.T) {
	ctx := newTestContext(t)

	account := createTestAccount(t, ctx, "carol@example.com")

	name := "Carol"
	_, err := profiles(ctx).Set(account.ID, core.ProfileUpdate{RealName: &name})
	require.NoError(t, err)

	require.NoError(t, profiles(ctx).Delete(account.ID))

	_, err = profiles(ctx).ByAccount(account.ID)
	assert.True(t, core.IsErrorType(err, core.ErrKeyProfileNotFound))

	// Deleting an absent profile is a no-op.
	require.NoError(t, profiles(ctx).Delete(account.ID))
}

func TestPreferencesUpdate(t *testing.T) {
	ctx := newTestContext(t)

	account := createTestAccount(t, ctx, "dan@example.com")

	prefs, err := preferences(ctx).ByAccount(account.ID)
	require.NoError(t, err)
	assert.True(t, prefs.PublicProfile)
	assert.False(t, prefs.ShowEmail)
	assert.Equal(t, "system", prefs.Theme)
	assert.Equal(t, "en", prefs.Locale)

	hidden := false
	theme := "dark"
	require.NoError(t, preferences(ctx).Update(account.ID, core.PreferencesUpdate{
		PublicProfile: &hidden,
		Theme:         &theme,
	}))

	prefs, err = preferences(ctx).ByAccount(account.ID)
	require.NoError(t, err)
	// False values persist; unset fields keep their values.
	assert.False(t, prefs.PublicProfile)
	assert.Equal(t, "dark", prefs.Theme)
	assert.Equal(t, "en", prefs.Locale)
}

func TestPreferencesUnknownAccount(t *testing.T) {
	ctx := newTestContext(t)

	theme := "dark"
	err := preferences(ctx).Update(4242, core.PreferencesUpdate{Theme: &theme})
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrKeyPreferencesNotFound))
}
