package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.accountd.dev/accountd/config"
	"go.accountd.dev/accountd/core"
	"go.accountd.dev/accountd/db"
	"go.accountd.dev/accountd/db/models"
	"go.accountd.dev/accountd/event"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var _ core.AccountService = (*AccountServiceDefault)(nil)

func init() {
	core.RegisterService(core.ServiceInfo{
		ID: core.ACCOUNT_SERVICE,
		Factory: func() (core.Service, []core.ContextBuilderOption, error) {
			return NewAccountService()
		},
		Depends: []string{core.CREDENTIAL_SERVICE, core.MIGRATION_SERVICE},
	})
}

type AccountServiceDefault struct {
	ctx        core.Context
	config     config.Manager
	db         *gorm.DB
	credential core.CredentialService
	mirror     *legacyMirror
}

func NewAccountService() (*AccountServiceDefault, []core.ContextBuilderOption, error) {
	account := &AccountServiceDefault{}

	opts := core.ContextOptions(
		core.ContextWithStartupFunc(func(ctx core.Context) error {
			account.ctx = ctx
			account.config = ctx.Config()
			account.db = ctx.DB()
			account.credential = core.GetService[core.CredentialService](ctx, core.CREDENTIAL_SERVICE)
			account.mirror = newLegacyMirror(ctx)
			account.registerAuditListeners(ctx)
			return nil
		}),
	)

	return account, opts, nil
}

// registerAuditListeners writes an audit trail for account lifecycle events.
func (s *AccountServiceDefault) registerAuditListeners(ctx core.Context) {
	event.Listen[*event.AccountCreatedEvent](ctx, event.EVENT_ACCOUNT_CREATED, func(evt *event.AccountCreatedEvent) error {
		ctx.Logger().Info("account created",
			zap.String("public_id", evt.Account().PublicID),
			zap.String("slug", evt.Account().Slug),
		)
		return nil
	})

	event.Listen[*event.AccountDeletedEvent](ctx, event.EVENT_ACCOUNT_DELETED, func(evt *event.AccountDeletedEvent) error {
		ctx.Logger().Info("account deleted", zap.Uint("account_id", evt.AccountID()))
		return nil
	})
}

func (s *AccountServiceDefault) ID() string {
	return core.ACCOUNT_SERVICE
}

func (s *AccountServiceDefault) CreateAccount(email string, displayName string, slug string, password string) (*models.Account, error) {
	email = strings.ToLower(email)

	if slug == "" {
		slug = slugify(displayName)
	}

	if !validSlug(slug) {
		return nil, core.NewIdentityError(core.ErrKeyInvalidSlug, nil)
	}

	passwordHash, err := s.credential.HashPassword(password)
	if err != nil {
		return nil, err
	}

	if exists, _, err := s.EmailExists(email); err != nil {
		return nil, err
	} else if exists {
		return nil, core.NewIdentityError(core.ErrKeyEmailAlreadyExists, nil)
	}

	if exists, _, err := s.SlugExists(slug); err != nil {
		return nil, err
	} else if exists {
		return nil, core.NewIdentityError(core.ErrKeySlugAlreadyExists, nil)
	}

	account := models.Account{
		Email:       email,
		DisplayName: displayName,
		Slug:        slug,
	}

	// Account, credential and preferences land in one transaction so a
	// partially created account can never be observed.
	err = db.RetryableTransaction(s.ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			return err
		}

		credential := models.Credential{
			AccountID:     account.ID,
			PasswordHash:  passwordHash,
			HashUpdatedAt: time.Now(),
		}
		if err := tx.Create(&credential).Error; err != nil {
			return err
		}

		preferences := models.Preferences{AccountID: account.ID}
		if err := tx.Create(&preferences).Error; err != nil {
			return err
		}

		return s.mirror.MirrorRegistration(tx, &account, passwordHash)
	})

	if err != nil {
		if db.IsDuplicateKeyError(err) {
			return nil, s.createConflictError(email, slug)
		}
		return nil, core.NewIdentityError(core.ErrKeyAccountCreationFailed, err)
	}

	if err = event.FireAccountCreatedEvent(s.ctx, &account); err != nil {
		return nil, err
	}

	return &account, nil
}

// createConflictError decides which uniqueness constraint a racing create
// tripped over. The pre-checks catch the common case, so this only runs when
// a competing writer landed between the check and the insert.
func (s *AccountServiceDefault) createConflictError(email string, slug string) error {
	if exists, _, err := s.EmailExists(email); err == nil && exists {
		return core.NewIdentityError(core.ErrKeyEmailAlreadyExists, nil)
	}

	if taken, _, err := s.SlugExists(slug); err == nil && taken {
		return core.NewIdentityError(core.ErrKeySlugAlreadyExists, nil)
	}

	return core.NewIdentityError(core.ErrKeyAccountCreationFailed, nil)
}

func (s *AccountServiceDefault) AccountByID(id uint) (*models.Account, error) {
	var account models.Account

	result := s.db.Model(&models.Account{}).Where("id = ?", id).First(&account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, core.NewIdentityError(core.ErrKeyAccountNotFound, nil)
		}
		return nil, core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, result.Error)
	}

	return &account, nil
}

func (s *AccountServiceDefault) AccountByEmail(email string) (*models.Account, error) {
	exists, account, err := s.EmailExists(email)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, core.NewIdentityError(core.ErrKeyAccountNotFound, nil)
	}

	return account, nil
}

func (s *AccountServiceDefault) AccountBySlug(slug string) (*models.Account, error) {
	exists, account, err := s.SlugExists(slug)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, core.NewIdentityError(core.ErrKeyAccountNotFound, nil)
	}

	return account, nil
}

func (s *AccountServiceDefault) EmailExists(email string) (bool, *models.Account, error) {
	return s.exists(map[string]interface{}{"email": strings.ToLower(email)})
}

func (s *AccountServiceDefault) SlugExists(slug string) (bool, *models.Account, error) {
	return s.exists(map[string]interface{}{"slug": slug})
}

func (s *AccountServiceDefault) exists(conditions map[string]interface{}) (bool, *models.Account, error) {
	var account models.Account

	result := s.db.Model(&models.Account{}).Where(conditions).First(&account)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return false, nil, nil
	}

	if result.Error != nil {
		return false, nil, core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, result.Error)
	}

	return true, &account, nil
}

func (s *AccountServiceDefault) UpdateAccount(id uint, update core.AccountUpdate) error {
	account, err := s.AccountByID(id)
	if err != nil {
		return err
	}

	fields := map[string]interface{}{}

	if update.DisplayName != nil {
		fields["display_name"] = *update.DisplayName
	}
	if update.Slug != nil {
		if !validSlug(*update.Slug) {
			return core.NewIdentityError(core.ErrKeyInvalidSlug, nil)
		}
		fields["slug"] = *update.Slug
	}
	if update.Active != nil {
		fields["active"] = *update.Active
	}

	if len(fields) == 0 {
		return nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Account{}).Where("id = ?", id).Updates(fields)
		if result.Error != nil {
			return result.Error
		}

		return s.mirror.MirrorAccountUpdate(tx, account.Email, fields)
	})

	if err != nil {
		if db.IsDuplicateKeyError(err) {
			return core.NewIdentityError(core.ErrKeySlugAlreadyExists, nil)
		}
		return core.NewIdentityError(core.ErrKeyAccountUpdateFailed, err)
	}

	return nil
}

func (s *AccountServiceDefault) MarkVerified(id uint) error {
	account, err := s.AccountByID(id)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Account{}).Where("id = ?", id).Update("verified", true).Error; err != nil {
			return err
		}

		return s.mirror.MirrorAccountUpdate(tx, account.Email, map[string]interface{}{"verified": true})
	})

	if err != nil {
		return core.NewIdentityError(core.ErrKeyAccountUpdateFailed, err)
	}

	return nil
}

func (s *AccountServiceDefault) UpdateLastLogin(id uint, ip string) error {
	now := time.Now()
	return s.updateAccountInfo(id, map[string]interface{}{"last_login": &now, "last_login_ip": ip})
}

func (s *AccountServiceDefault) updateAccountInfo(id uint, fields map[string]interface{}) error {
	if err := db.RetryOnLock(s.db, func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.Account{}).Where("id = ?", id).Updates(fields)
	}); err != nil {
		return core.NewIdentityError(core.ErrKeyAccountUpdateFailed, err)
	}

	return nil
}

// DeleteAccount hard-deletes the account and every dependent row. A partial
// cascade would orphan personal data, so the whole removal is one
// transaction.
func (s *AccountServiceDefault) DeleteAccount(id uint) error {
	account, err := s.AccountByID(id)
	if err != nil {
		return err
	}

	err = db.RetryableTransaction(s.ctx, s.db, func(tx *gorm.DB) error {
		for _, dependent := range []interface{}{
			&models.Credential{},
			&models.ExternalLogin{},
			&models.Profile{},
			&models.Preferences{},
		} {
			if err := tx.Unscoped().Where("account_id = ?", id).Delete(dependent).Error; err != nil {
				return err
			}
		}

		if err := tx.Unscoped().Delete(&models.Account{}, id).Error; err != nil {
			return err
		}

		return s.mirror.MirrorDelete(tx, account.Email)
	})

	if err != nil {
		return core.NewIdentityError(core.ErrKeyDatabaseOperationFailed, fmt.Errorf("account deletion failed: %w", err))
	}

	return event.FireAccountDeletedEvent(s.ctx, id, account.Email)
}
