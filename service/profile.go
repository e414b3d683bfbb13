package service

import (
	"errors"

	"go.accountd.dev/accountd/config"
	"go.accountd.dev/accountd/core"
	"go.accountd.dev/accountd/db/models"
	"gorm.io/gorm"
)

var _ core.ProfileService = (*ProfileServiceDefault)(nil)

func init() {
	core.RegisterService(core.ServiceInfo{
		ID: core.PROFILE_SERVICE,
		Factory: func() (core.Service, []core.ContextBuilderOption, error) {
			return NewProfileService()
		},
		Depends: []string{core.MIGRATION_SERVICE},
	})
}

type ProfileServiceDefault struct {
	ctx    core.Context
	config config.Manager
	db     *gorm.DB
	mirror *legacyMirror
}

func NewProfileService() (*ProfileServiceDefault, []core.ContextBuilderOption, error) {
	profile := &ProfileServiceDefault{}

	opts := core.ContextOptions(
		core.ContextWithStartupFunc(func(ctx core.Context) error {
			profile.ctx = ctx
			profile.config = ctx.Config()
			profile.db = ctx.DB()
			profile.mirror = newLegacyMirror(ctx)
			return nil
		}),
	)

	return profile, opts, nil
}

func (s *ProfileServiceDefault) ID() string {
	return core.PROFILE_SERVICE
}

func (s *ProfileServiceDefault) ByAccount(accountID uint) (*models.Profile, error) {
	var profile models.Profile

	result := s.db.Model(&models.Profile{}).Where("account_id = ?", accountID).First(&profile)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, core.NewIdentityError(core.ErrKeyProfileNotFound, nil)
		}
		return nil, core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, result.Error)
	}

	return &profile, nil
}

// Set creates the profile row on first write, so accounts that never touched
// their profile carry no row at all.
func (s *ProfileServiceDefault) Set(accountID uint, update core.ProfileUpdate) (*models.Profile, error) {
	var profile models.Profile

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(models.Profile{AccountID: accountID}).FirstOrCreate(&profile).Error; err != nil {
			return err
		}

		if update.RealName != nil {
			profile.RealName = *update.RealName
		}
		if update.Bio != nil {
			profile.Bio = *update.Bio
		}
		if update.AvatarURL != nil {
			profile.AvatarURL = *update.AvatarURL
		}
		if update.Location != nil {
			profile.Location = *update.Location
		}
		if update.Website != nil {
			profile.Website = *update.Website
		}

		if err := tx.Save(&profile).Error; err != nil {
			return err
		}

		return s.mirror.MirrorProfile(tx, accountID, &profile)
	})

	if err != nil {
		return nil, core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, err)
	}

	return &profile, nil
}

func (s *ProfileServiceDefault) Delete(accountID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("account_id = ?", accountID).Delete(&models.Profile{}).Error; err != nil {
			return err
		}

		return s.mirror.MirrorProfileDelete(tx, accountID)
	})

	if err != nil {
		return core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, err)
	}

	return nil
}
