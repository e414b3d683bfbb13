package service

import (
	"errors"
	"time"

	"go.accountd.dev/accountd/config"
	"go.accountd.dev/accountd/core"
	"go.accountd.dev/accountd/db"
	"go.accountd.dev/accountd/db/models"
	"gorm.io/gorm"
)

var _ core.ExternalLoginService = (*ExternalLoginServiceDefault)(nil)

func init() {
	core.RegisterService(core.ServiceInfo{
		ID: core.EXTERNAL_LOGIN_SERVICE,
		Factory: func() (core.Service, []core.ContextBuilderOption, error) {
			return NewExternalLoginService()
		},
		Depends: []string{core.MIGRATION_SERVICE},
	})
}

type ExternalLoginServiceDefault struct {
	ctx    core.Context
	config config.Manager
	db     *gorm.DB
	mirror *legacyMirror
}

func NewExternalLoginService() (*ExternalLoginServiceDefault, []core.ContextBuilderOption, error) {
	login := &ExternalLoginServiceDefault{}

	opts := core.ContextOptions(
		core.ContextWithStartupFunc(func(ctx core.Context) error {
			login.ctx = ctx
			login.config = ctx.Config()
			login.db = ctx.DB()
			login.mirror = newLegacyMirror(ctx)
			return nil
		}),
	)

	return login, opts, nil
}

func (s *ExternalLoginServiceDefault) ID() string {
	return core.EXTERNAL_LOGIN_SERVICE
}

func (s *ExternalLoginServiceDefault) Link(accountID uint, provider string, subject string, providerEmail string) (*models.ExternalLogin, error) {
	login := models.ExternalLogin{
		AccountID:       accountID,
		Provider:        provider,
		ProviderSubject: subject,
		ProviderEmail:   providerEmail,
		LinkedAt:        time.Now(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&login).Error; err != nil {
			return err
		}

		return s.mirror.MirrorExternalLink(tx, accountID, provider, subject)
	})

	if err != nil {
		// The composite unique index rejects a second claim on the same
		// provider identity, no matter which account makes it.
		if db.IsDuplicateKeyError(err) {
			return nil, core.NewIdentityError(core.ErrKeyProviderIdentityTaken, nil)
		}
		return nil, core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, err)
	}

	return &login, nil
}

func (s *ExternalLoginServiceDefault) ByProviderIdentity(provider string, subject string) (*models.ExternalLogin, error) {
	var login models.ExternalLogin

	result := s.db.Model(&models.ExternalLogin{}).
		Where("provider = ? AND provider_subject = ?", provider, subject).
		First(&login)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, core.NewIdentityError(core.ErrKeyExternalLoginNotFound, nil)
		}
		return nil, core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, result.Error)
	}

	return &login, nil
}

func (s *ExternalLoginServiceDefault) ByAccount(accountID uint) ([]models.ExternalLogin, error) {
	var logins []models.ExternalLogin

	if err := s.db.Model(&models.ExternalLogin{}).
		Where("account_id = ?", accountID).
		Order("linked_at ASC").
		Find(&logins).Error; err != nil {
		return nil, core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, err)
	}

	return logins, nil
}

func (s *ExternalLoginServiceDefault) Unlink(accountID uint, provider string) error {
	var login models.ExternalLogin

	result := s.db.Model(&models.ExternalLogin{}).
		Where("account_id = ? AND provider = ?", accountID, provider).
		First(&login)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return core.NewIdentityError(core.ErrKeyExternalLoginNotFound, nil)
		}
		return core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, result.Error)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		methods, err := authMethodCount(tx, accountID)
		if err != nil {
			return err
		}
		if methods <= 1 {
			return core.NewIdentityError(core.ErrKeyLastAuthMethod, nil)
		}

		if err := tx.Unscoped().Delete(&models.ExternalLogin{}, login.ID).Error; err != nil {
			return err
		}

		return s.mirror.MirrorExternalUnlink(tx, accountID, provider)
	})

	if err != nil {
		if core.IsIdentityError(err) {
			return err
		}
		return core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, err)
	}

	return nil
}

func (s *ExternalLoginServiceDefault) Delete(id uint) error {
	var login models.ExternalLogin

	result := s.db.Model(&models.ExternalLogin{}).Where("id = ?", id).First(&login)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return core.NewIdentityError(core.ErrKeyExternalLoginNotFound, nil)
		}
		return core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, result.Error)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Delete(&models.ExternalLogin{}, id).Error; err != nil {
			return err
		}

		return s.mirror.MirrorExternalUnlink(tx, login.AccountID, login.Provider)
	})

	if err != nil {
		return core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, err)
	}

	return nil
}
