package service

import (
	"errors"
	"time"

	"go.accountd.dev/accountd/config"
	"go.accountd.dev/accountd/core"
	"go.accountd.dev/accountd/db"
	"go.accountd.dev/accountd/db/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var _ core.CredentialService = (*CredentialServiceDefault)(nil)

func init() {
	core.RegisterService(core.ServiceInfo{
		ID: core.CREDENTIAL_SERVICE,
		Factory: func() (core.Service, []core.ContextBuilderOption, error) {
			return NewCredentialService()
		},
		Depends: []string{core.MIGRATION_SERVICE},
	})
}

type CredentialServiceDefault struct {
	ctx    core.Context
	config config.Manager
	db     *gorm.DB
	mirror *legacyMirror
}

func NewCredentialService() (*CredentialServiceDefault, []core.ContextBuilderOption, error) {
	credential := &CredentialServiceDefault{}

	opts := core.ContextOptions(
		core.ContextWithStartupFunc(func(ctx core.Context) error {
			credential.ctx = ctx
			credential.config = ctx.Config()
			credential.db = ctx.DB()
			credential.mirror = newLegacyMirror(ctx)
			return nil
		}),
	)

	return credential, opts, nil
}

func (s *CredentialServiceDefault) ID() string {
	return core.CREDENTIAL_SERVICE
}

func (s *CredentialServiceDefault) Create(accountID uint, passwordHash string) (*models.Credential, error) {
	exists, err := s.Exists(accountID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, core.NewIdentityError(core.ErrKeyCredentialExists, nil)
	}

	credential := models.Credential{
		AccountID:     accountID,
		PasswordHash:  passwordHash,
		HashUpdatedAt: time.Now(),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&credential).Error; err != nil {
			return err
		}

		return s.mirror.MirrorPassword(tx, accountID, passwordHash)
	})

	if err != nil {
		if db.IsDuplicateKeyError(err) {
			return nil, core.NewIdentityError(core.ErrKeyCredentialExists, nil)
		}
		return nil, core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, err)
	}

	return &credential, nil
}

func (s *CredentialServiceDefault) ByAccount(accountID uint) (*models.Credential, error) {
	var credential models.Credential

	result := s.db.Model(&models.Credential{}).Where("account_id = ?", accountID).First(&credential)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, core.NewIdentityError(core.ErrKeyCredentialNotFound, nil)
		}
		return nil, core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, result.Error)
	}

	return &credential, nil
}

func (s *CredentialServiceDefault) Exists(accountID uint) (bool, error) {
	var count int64
	if err := s.db.Model(&models.Credential{}).Where("account_id = ?", accountID).Count(&count).Error; err != nil {
		return false, core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, err)
	}

	return count > 0, nil
}

func (s *CredentialServiceDefault) Replace(accountID uint, newHash string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Credential{}).Where("account_id = ?", accountID).
			Updates(map[string]interface{}{
				"password_hash":   newHash,
				"hash_updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return core.NewIdentityError(core.ErrKeyCredentialNotFound, nil)
		}

		return s.mirror.MirrorPassword(tx, accountID, newHash)
	})

	if err != nil {
		if core.IsIdentityError(err) {
			return err
		}
		return core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, err)
	}

	return nil
}

func (s *CredentialServiceDefault) Remove(accountID uint) error {
	if _, err := s.ByAccount(accountID); err != nil {
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		methods, err := authMethodCount(tx, accountID)
		if err != nil {
			return err
		}
		// The password plus zero external logins means removing it would
		// lock the account out.
		if methods <= 1 {
			return core.NewIdentityError(core.ErrKeyLastAuthMethod, nil)
		}

		if err := tx.Unscoped().Where("account_id = ?", accountID).Delete(&models.Credential{}).Error; err != nil {
			return err
		}

		return s.mirror.MirrorPassword(tx, accountID, "")
	})

	if err != nil {
		if core.IsIdentityError(err) {
			return err
		}
		return core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, err)
	}

	return nil
}

func (s *CredentialServiceDefault) SetPassword(accountID uint, password string) error {
	hash, err := s.HashPassword(password)
	if err != nil {
		return err
	}

	exists, err := s.Exists(accountID)
	if err != nil {
		return err
	}

	if exists {
		return s.Replace(accountID, hash)
	}

	_, err = s.Create(accountID, hash)
	return err
}

func (s *CredentialServiceDefault) VerifyPassword(accountID uint, password string) error {
	credential, err := s.ByAccount(accountID)
	if err != nil {
		if core.IsErrorType(err, core.ErrKeyCredentialNotFound) {
			return core.NewIdentityError(core.ErrKeyPasswordNotSet, nil)
		}
		return err
	}

	if err = bcrypt.CompareHashAndPassword([]byte(credential.PasswordHash), []byte(password)); err != nil {
		return core.NewIdentityError(core.ErrKeyInvalidPassword, nil)
	}

	return nil
}

func (s *CredentialServiceDefault) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", core.NewIdentityError(core.ErrKeyPasswordHashingFailed, err)
	}

	return string(hash), nil
}
