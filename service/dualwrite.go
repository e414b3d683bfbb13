package service

import (
	"go.accountd.dev/accountd/core"
	"go.accountd.dev/accountd/db/models"
	"gorm.io/gorm"
)

// legacyMirror replays store writes into the monolithic legacy table during
// the transition window. Every method takes the caller's open transaction, so
// the mirror write commits or rolls back together with the primary write and
// the two representations cannot diverge on failure. All writes are keyed by
// email and idempotent, replaying one is harmless.
type legacyMirror struct {
	migration core.MigrationService
}

func newLegacyMirror(ctx core.Context) *legacyMirror {
	return &legacyMirror{
		migration: core.GetService[core.MigrationService](ctx, core.MIGRATION_SERVICE),
	}
}

func (m *legacyMirror) enabled() bool {
	return m.migration.DualWriteEnabled()
}

func (m *legacyMirror) accountEmail(tx *gorm.DB, accountID uint) (string, error) {
	var account models.Account
	if err := tx.Select("email").First(&account, accountID).Error; err != nil {
		return "", err
	}
	return account.Email, nil
}

func (m *legacyMirror) MirrorRegistration(tx *gorm.DB, account *models.Account, passwordHash string) error {
	if !m.enabled() {
		return nil
	}

	legacy := models.LegacyAccount{Email: account.Email}

	return tx.Where("email = ?", account.Email).
		Assign(map[string]interface{}{
			"display_name":  account.DisplayName,
			"slug":          account.Slug,
			"password_hash": passwordHash,
			"verified":      account.Verified,
			"roles":         account.Roles,
		}).
		FirstOrCreate(&legacy).Error
}

// legacyAccountColumns are the account fields that also exist on the legacy
// record. Anything else, such as last-login bookkeeping, is new-world only.
var legacyAccountColumns = map[string]bool{
	"display_name": true,
	"slug":         true,
	"verified":     true,
	"roles":        true,
}

func (m *legacyMirror) MirrorAccountUpdate(tx *gorm.DB, email string, fields map[string]interface{}) error {
	if !m.enabled() {
		return nil
	}

	mirrored := map[string]interface{}{}
	for column, value := range fields {
		if legacyAccountColumns[column] {
			mirrored[column] = value
		}
	}

	if len(mirrored) == 0 {
		return nil
	}

	return tx.Model(&models.LegacyAccount{}).Where("email = ?", email).Updates(mirrored).Error
}

func (m *legacyMirror) MirrorDelete(tx *gorm.DB, email string) error {
	if !m.enabled() {
		return nil
	}

	return tx.Unscoped().Where("email = ?", email).Delete(&models.LegacyAccount{}).Error
}

func (m *legacyMirror) MirrorPassword(tx *gorm.DB, accountID uint, passwordHash string) error {
	if !m.enabled() {
		return nil
	}

	email, err := m.accountEmail(tx, accountID)
	if err != nil {
		return err
	}

	return tx.Model(&models.LegacyAccount{}).Where("email = ?", email).
		Update("password_hash", passwordHash).Error
}

func (m *legacyMirror) MirrorExternalLink(tx *gorm.DB, accountID uint, provider string, subject string) error {
	if !m.enabled() {
		return nil
	}

	email, err := m.accountEmail(tx, accountID)
	if err != nil {
		return err
	}

	return tx.Model(&models.LegacyAccount{}).Where("email = ?", email).
		Updates(map[string]interface{}{"provider": provider, "provider_subject": subject}).Error
}

func (m *legacyMirror) MirrorExternalUnlink(tx *gorm.DB, accountID uint, provider string) error {
	if !m.enabled() {
		return nil
	}

	email, err := m.accountEmail(tx, accountID)
	if err != nil {
		return err
	}

	return tx.Model(&models.LegacyAccount{}).
		Where("email = ? AND provider = ?", email, provider).
		Updates(map[string]interface{}{"provider": "", "provider_subject": ""}).Error
}

func (m *legacyMirror) MirrorProfile(tx *gorm.DB, accountID uint, profile *models.Profile) error {
	if !m.enabled() {
		return nil
	}

	email, err := m.accountEmail(tx, accountID)
	if err != nil {
		return err
	}

	return tx.Model(&models.LegacyAccount{}).Where("email = ?", email).
		Updates(map[string]interface{}{
			"real_name":  profile.RealName,
			"bio":        profile.Bio,
			"avatar_url": profile.AvatarURL,
			"location":   profile.Location,
			"website":    profile.Website,
		}).Error
}

func (m *legacyMirror) MirrorProfileDelete(tx *gorm.DB, accountID uint) error {
	return m.MirrorProfile(tx, accountID, &models.Profile{})
}

func (m *legacyMirror) MirrorPreferences(tx *gorm.DB, accountID uint, preferences *models.Preferences) error {
	if !m.enabled() {
		return nil
	}

	email, err := m.accountEmail(tx, accountID)
	if err != nil {
		return err
	}

	return tx.Model(&models.LegacyAccount{}).Where("email = ?", email).
		Updates(map[string]interface{}{
			"public_profile": preferences.PublicProfile,
			"show_email":     preferences.ShowEmail,
			"theme":          preferences.Theme,
			"locale":         preferences.Locale,
		}).Error
}
