package service

import (
	"errors"

	"go.accountd.dev/accountd/config"
	"go.accountd.dev/accountd/core"
	"go.accountd.dev/accountd/db/models"
	"gorm.io/gorm"
)

var _ core.PreferenceService = (*PreferenceServiceDefault)(nil)

func init() {
	core.RegisterService(core.ServiceInfo{
		ID: core.PREFERENCE_SERVICE,
		Factory: func() (core.Service, []core.ContextBuilderOption, error) {
			return NewPreferenceService()
		},
		Depends: []string{core.MIGRATION_SERVICE},
	})
}

type PreferenceServiceDefault struct {
	ctx    core.Context
	config config.Manager
	db     *gorm.DB
	mirror *legacyMirror
}

func NewPreferenceService() (*PreferenceServiceDefault, []core.ContextBuilderOption, error) {
	preference := &PreferenceServiceDefault{}

	opts := core.ContextOptions(
		core.ContextWithStartupFunc(func(ctx core.Context) error {
			preference.ctx = ctx
			preference.config = ctx.Config()
			preference.db = ctx.DB()
			preference.mirror = newLegacyMirror(ctx)
			return nil
		}),
	)

	return preference, opts, nil
}

func (s *PreferenceServiceDefault) ID() string {
	return core.PREFERENCE_SERVICE
}

func (s *PreferenceServiceDefault) ByAccount(accountID uint) (*models.Preferences, error) {
	var preferences models.Preferences

	result := s.db.Model(&models.Preferences{}).Where("account_id = ?", accountID).First(&preferences)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, core.NewIdentityError(core.ErrKeyPreferencesNotFound, nil)
		}
		return nil, core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, result.Error)
	}

	return &preferences, nil
}

func (s *PreferenceServiceDefault) Update(accountID uint, update core.PreferencesUpdate) error {
	preferences, err := s.ByAccount(accountID)
	if err != nil {
		return err
	}

	if update.PublicProfile != nil {
		preferences.PublicProfile = *update.PublicProfile
	}
	if update.ShowEmail != nil {
		preferences.ShowEmail = *update.ShowEmail
	}
	if update.Theme != nil {
		preferences.Theme = *update.Theme
	}
	if update.Locale != nil {
		preferences.Locale = *update.Locale
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Save with explicit column selection so false and empty values are
		// written rather than skipped as zero values.
		if err := tx.Model(&models.Preferences{}).Where("account_id = ?", accountID).
			Select("public_profile", "show_email", "theme", "locale").
			Updates(map[string]interface{}{
				"public_profile": preferences.PublicProfile,
				"show_email":     preferences.ShowEmail,
				"theme":          preferences.Theme,
				"locale":         preferences.Locale,
			}).Error; err != nil {
			return err
		}

		return s.mirror.MirrorPreferences(tx, accountID, preferences)
	})

	if err != nil {
		return core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, err)
	}

	return nil
}
