package service

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.accountd.dev/accountd/config"
	"go.accountd.dev/accountd/core"
	"go.accountd.dev/accountd/db/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var _ core.MigrationService = (*MigrationServiceDefault)(nil)

const backfillBatchSize = 200

func init() {
	core.RegisterService(core.ServiceInfo{
		ID: core.MIGRATION_SERVICE,
		Factory: func() (core.Service, []core.ContextBuilderOption, error) {
			return NewMigrationService()
		},
	})
}

// MigrationServiceDefault coordinates the move off the monolithic legacy
// table. It talks to the database directly rather than through the store
// services, so every store service can depend on it without a cycle.
type MigrationServiceDefault struct {
	ctx       core.Context
	config    config.Manager
	db        *gorm.DB
	logger    *core.Logger
	scheduler gocron.Scheduler

	dualWrite atomic.Bool
	cutover   atomic.Bool
}

func NewMigrationService() (*MigrationServiceDefault, []core.ContextBuilderOption, error) {
	migration := &MigrationServiceDefault{}

	opts := core.ContextOptions(
		core.ContextWithStartupFunc(func(ctx core.Context) error {
			migration.ctx = ctx
			migration.config = ctx.Config()
			migration.db = ctx.DB()
			migration.logger = ctx.Logger()

			cfg := ctx.Config().Config().Core.Migration
			migration.dualWrite.Store(cfg.DualWrite)

			if cfg.DualWrite {
				return migration.startVerifyLoop(cfg.VerifyInterval)
			}

			return nil
		}),
		core.ContextWithExitFunc(func(ctx core.Context) error {
			if migration.scheduler != nil {
				return migration.scheduler.Shutdown()
			}
			return nil
		}),
	)

	return migration, opts, nil
}

func (s *MigrationServiceDefault) ID() string {
	return core.MIGRATION_SERVICE
}

func (s *MigrationServiceDefault) DualWriteEnabled() bool {
	return s.dualWrite.Load() && !s.cutover.Load()
}

// startVerifyLoop schedules periodic consistency checks for the dual-write
// window, so drift surfaces long before anyone attempts cutover.
func (s *MigrationServiceDefault) startVerifyLoop(interval time.Duration) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			report, err := s.Verify()
			if err != nil {
				s.logger.Error("migration verify failed", zap.Error(err))
				return
			}

			if !report.Clean() {
				s.logger.Warn("migration representations diverged",
					zap.Int64("legacy_count", report.LegacyCount),
					zap.Int64("account_count", report.AccountCount),
					zap.Strings("mismatches", report.Mismatches),
				)
				return
			}

			s.logger.Debug("migration verify clean",
				zap.Int64("legacy_count", report.LegacyCount),
				zap.Int64("account_count", report.AccountCount),
			)
		}),
	)
	if err != nil {
		return err
	}

	scheduler.Start()
	s.scheduler = scheduler

	return nil
}

func (s *MigrationServiceDefault) Backfill() (*core.BackfillStats, error) {
	stats := &core.BackfillStats{}

	var batch []models.LegacyAccount
	result := s.db.Model(&models.LegacyAccount{}).FindInBatches(&batch, backfillBatchSize, func(tx *gorm.DB, _ int) error {
		for i := range batch {
			if err := s.backfillOne(&batch[i], stats); err != nil {
				return err
			}
		}
		return nil
	})

	if result.Error != nil {
		return nil, core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, result.Error)
	}

	return stats, nil
}

// backfillOne migrates a single legacy record. Records whose email already
// has an account are skipped, which makes re-running the job after a partial
// failure safe.
func (s *MigrationServiceDefault) backfillOne(legacy *models.LegacyAccount, stats *core.BackfillStats) error {
	var existing int64
	if err := s.db.Model(&models.Account{}).Where("email = ?", legacy.Email).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		stats.Skipped++
		return nil
	}

	slug, err := s.backfillSlug(legacy)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		account := models.Account{
			Email:       legacy.Email,
			DisplayName: legacy.DisplayName,
			Slug:        slug,
			Verified:    legacy.Verified,
			Roles:       legacy.Roles,
		}
		account.CreatedAt = legacy.CreatedAt

		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		stats.Accounts++

		if legacy.PasswordHash != "" {
			credential := models.Credential{
				AccountID:     account.ID,
				PasswordHash:  legacy.PasswordHash,
				HashUpdatedAt: legacy.UpdatedAt,
			}
			if err := tx.Create(&credential).Error; err != nil {
				return err
			}
			stats.Credentials++
		}

		if legacy.Provider != "" && legacy.ProviderSubject != "" {
			login := models.ExternalLogin{
				AccountID:       account.ID,
				Provider:        legacy.Provider,
				ProviderSubject: legacy.ProviderSubject,
				ProviderEmail:   legacy.Email,
				LinkedAt:        legacy.CreatedAt,
			}
			if err := tx.Create(&login).Error; err != nil {
				return err
			}
			stats.ExternalLogins++
		}

		if legacy.HasProfileData() {
			profile := models.Profile{
				AccountID: account.ID,
				RealName:  legacy.RealName,
				Bio:       legacy.Bio,
				AvatarURL: legacy.AvatarURL,
				Location:  legacy.Location,
				Website:   legacy.Website,
			}
			if err := tx.Create(&profile).Error; err != nil {
				return err
			}
			stats.Profiles++
		}

		preferences := models.Preferences{
			AccountID:     account.ID,
			PublicProfile: legacy.PublicProfile,
			ShowEmail:     legacy.ShowEmail,
			Theme:         legacy.Theme,
			Locale:        legacy.Locale,
		}
		if err := tx.Create(&preferences).Error; err != nil {
			return err
		}
		stats.Preferences++

		now := time.Now()
		return tx.Model(&models.LegacyAccount{}).Where("id = ?", legacy.ID).
			Update("migrated_at", &now).Error
	})
}

func (s *MigrationServiceDefault) backfillSlug(legacy *models.LegacyAccount) (string, error) {
	slug := legacy.Slug
	if slug == "" {
		slug = slugify(legacy.DisplayName)
	}
	if slug == "" {
		slug = fmt.Sprintf("account-%d", legacy.ID)
	}

	var taken int64
	if err := s.db.Model(&models.Account{}).Where("slug = ?", slug).Count(&taken).Error; err != nil {
		return "", err
	}
	if taken > 0 {
		slug = fmt.Sprintf("%s-%d", slug, legacy.ID)
	}

	return slug, nil
}

func (s *MigrationServiceDefault) Verify() (*core.MigrationReport, error) {
	report := &core.MigrationReport{}

	if err := s.db.Model(&models.LegacyAccount{}).Count(&report.LegacyCount).Error; err != nil {
		return nil, core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, err)
	}
	if err := s.db.Model(&models.Account{}).Count(&report.AccountCount).Error; err != nil {
		return nil, core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, err)
	}

	var batch []models.LegacyAccount
	result := s.db.Model(&models.LegacyAccount{}).FindInBatches(&batch, backfillBatchSize, func(tx *gorm.DB, _ int) error {
		for i := range batch {
			if err := s.verifyOne(&batch[i], report); err != nil {
				return err
			}
		}
		return nil
	})
	if result.Error != nil {
		return nil, core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, result.Error)
	}

	return report, nil
}

func (s *MigrationServiceDefault) verifyOne(legacy *models.LegacyAccount, report *core.MigrationReport) error {
	mismatch := func(field string) {
		report.Mismatches = append(report.Mismatches, fmt.Sprintf("%s: %s", legacy.Email, field))
	}

	var account models.Account
	if err := s.db.Where("email = ?", legacy.Email).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			mismatch("account missing")
			return nil
		}
		return err
	}

	if account.DisplayName != legacy.DisplayName {
		mismatch("display_name")
	}
	if account.Verified != legacy.Verified {
		mismatch("verified")
	}
	if account.Roles != legacy.Roles {
		mismatch("roles")
	}

	var credential models.Credential
	credErr := s.db.Where("account_id = ?", account.ID).First(&credential).Error
	switch {
	case errors.Is(credErr, gorm.ErrRecordNotFound):
		if legacy.PasswordHash != "" {
			mismatch("credential missing")
		}
	case credErr != nil:
		return credErr
	default:
		if credential.PasswordHash != legacy.PasswordHash {
			mismatch("password_hash")
		}
	}

	if legacy.Provider != "" && legacy.ProviderSubject != "" {
		var links int64
		if err := s.db.Model(&models.ExternalLogin{}).
			Where("account_id = ? AND provider = ? AND provider_subject = ?",
				account.ID, legacy.Provider, legacy.ProviderSubject).
			Count(&links).Error; err != nil {
			return err
		}
		if links == 0 {
			mismatch("external_login missing")
		}
	}

	if legacy.HasProfileData() {
		var profile models.Profile
		profErr := s.db.Where("account_id = ?", account.ID).First(&profile).Error
		switch {
		case errors.Is(profErr, gorm.ErrRecordNotFound):
			mismatch("profile missing")
		case profErr != nil:
			return profErr
		default:
			if profile.RealName != legacy.RealName || profile.Bio != legacy.Bio ||
				profile.AvatarURL != legacy.AvatarURL || profile.Location != legacy.Location ||
				profile.Website != legacy.Website {
				mismatch("profile fields")
			}
		}
	}

	var preferences models.Preferences
	prefErr := s.db.Where("account_id = ?", account.ID).First(&preferences).Error
	switch {
	case errors.Is(prefErr, gorm.ErrRecordNotFound):
		mismatch("preferences missing")
	case prefErr != nil:
		return prefErr
	default:
		if preferences.PublicProfile != legacy.PublicProfile || preferences.ShowEmail != legacy.ShowEmail ||
			preferences.Theme != legacy.Theme || preferences.Locale != legacy.Locale {
			mismatch("preference fields")
		}
	}

	return nil
}

// Cutover stops mirroring after a clean verification run. Legacy rows are
// left in place so reads can be rolled back until a separate cleanup drops
// them.
func (s *MigrationServiceDefault) Cutover() error {
	report, err := s.Verify()
	if err != nil {
		return err
	}

	if !report.Clean() {
		return core.NewIdentityError(core.ErrKeyMigrationVerifyFailed,
			fmt.Errorf("%d mismatches block cutover", len(report.Mismatches)))
	}

	s.cutover.Store(true)

	if s.scheduler != nil {
		if err := s.scheduler.Shutdown(); err != nil {
			s.logger.Warn("verify scheduler shutdown failed", zap.Error(err))
		}
		s.scheduler = nil
	}

	s.logger.Info("migration cutover complete",
		zap.Int64("accounts", report.AccountCount),
		zap.Int64("legacy_retained", report.LegacyCount),
	)

	return nil
}
