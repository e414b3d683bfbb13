package service

import (
	"time"

	"go.accountd.dev/accountd/config"
	"go.accountd.dev/accountd/core"
	"go.accountd.dev/accountd/db"
	"go.accountd.dev/accountd/db/models"
	"go.accountd.dev/accountd/event"
	"gorm.io/gorm"
)

var _ core.AccountLinkingService = (*AccountLinkingServiceDefault)(nil)

func init() {
	core.RegisterService(core.ServiceInfo{
		ID: core.LINKING_SERVICE,
		Factory: func() (core.Service, []core.ContextBuilderOption, error) {
			return NewAccountLinkingService()
		},
		Depends: []string{core.ACCOUNT_SERVICE, core.EXTERNAL_LOGIN_SERVICE, core.MIGRATION_SERVICE},
	})
}

type AccountLinkingServiceDefault struct {
	ctx      core.Context
	config   config.Manager
	db       *gorm.DB
	accounts core.AccountService
	logins   core.ExternalLoginService
	mirror   *legacyMirror
}

func NewAccountLinkingService() (*AccountLinkingServiceDefault, []core.ContextBuilderOption, error) {
	linking := &AccountLinkingServiceDefault{}

	opts := core.ContextOptions(
		core.ContextWithStartupFunc(func(ctx core.Context) error {
			linking.ctx = ctx
			linking.config = ctx.Config()
			linking.db = ctx.DB()
			linking.accounts = core.GetService[core.AccountService](ctx, core.ACCOUNT_SERVICE)
			linking.logins = core.GetService[core.ExternalLoginService](ctx, core.EXTERNAL_LOGIN_SERVICE)
			linking.mirror = newLegacyMirror(ctx)
			return nil
		}),
	)

	return linking, opts, nil
}

func (s *AccountLinkingServiceDefault) ID() string {
	return core.LINKING_SERVICE
}

// ResolveCallback decides what a provider callback means. The decision order
// is fixed: an existing link always wins, then an email match may link, and
// only then is a fresh account created. Linking into an existing account is
// refused while its email is unverified, since a provider asserting an
// address must not grant access to an account that never proved it.
func (s *AccountLinkingServiceDefault) ResolveCallback(identity core.ProviderIdentity) (*models.Account, error) {
	login, err := s.logins.ByProviderIdentity(identity.Provider, identity.Subject)
	if err == nil {
		return s.accounts.AccountByID(login.AccountID)
	}
	if !core.IsErrorType(err, core.ErrKeyExternalLoginNotFound) {
		return nil, err
	}

	exists, account, err := s.accounts.EmailExists(identity.Email)
	if err != nil {
		return nil, err
	}

	if exists {
		return s.linkExisting(account, identity)
	}

	return s.provisionAccount(identity)
}

func (s *AccountLinkingServiceDefault) linkExisting(account *models.Account, identity core.ProviderIdentity) (*models.Account, error) {
	if !account.Verified {
		return nil, core.NewIdentityError(core.ErrKeyUnverifiedEmailLink, nil)
	}

	login, err := s.logins.Link(account.ID, identity.Provider, identity.Subject, identity.Email)
	if err != nil {
		// Two callbacks for the same provider identity can race past the
		// initial lookup. The unique index serializes them; the loser
		// re-reads and returns whichever account won.
		if core.IsErrorType(err, core.ErrKeyProviderIdentityTaken) {
			return s.resolveRace(identity)
		}
		return nil, err
	}

	if err = event.FireExternalLoginLinkedEvent(s.ctx, account, login); err != nil {
		return nil, err
	}

	return account, nil
}

// provisionAccount creates a fresh account from nothing but provider facts.
// There is no password credential; the provider link is the account's sole
// authentication method. The provider asserted the email, so the account
// starts verified.
func (s *AccountLinkingServiceDefault) provisionAccount(identity core.ProviderIdentity) (*models.Account, error) {
	displayName := identity.DisplayName
	if displayName == "" {
		displayName = identity.Email
	}

	slug := slugify(displayName)
	if taken, _, err := s.accounts.SlugExists(slug); err != nil {
		return nil, err
	} else if taken || slug == "" {
		slug = slugify(identity.Provider + "-" + identity.Subject)
	}

	account := models.Account{
		Email:       identity.Email,
		DisplayName: displayName,
		Slug:        slug,
		Verified:    true,
	}

	var login *models.ExternalLogin

	err := db.RetryableTransaction(s.ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			return err
		}

		login = &models.ExternalLogin{
			AccountID:       account.ID,
			Provider:        identity.Provider,
			ProviderSubject: identity.Subject,
			ProviderEmail:   identity.Email,
			LinkedAt:        time.Now(),
		}
		if err := tx.Create(login).Error; err != nil {
			return err
		}

		preferences := models.Preferences{AccountID: account.ID}
		if err := tx.Create(&preferences).Error; err != nil {
			return err
		}

		// Provider-supplied display attributes seed the profile. An account
		// provisioned from bare facts (subject and email only) gets none.
		if identity.DisplayName != "" || identity.AvatarURL != "" {
			profile := models.Profile{
				AccountID: account.ID,
				RealName:  identity.DisplayName,
				AvatarURL: identity.AvatarURL,
			}
			if err := tx.Create(&profile).Error; err != nil {
				return err
			}

			if err := s.mirror.MirrorProfile(tx, account.ID, &profile); err != nil {
				return err
			}
		}

		if err := s.mirror.MirrorRegistration(tx, &account, ""); err != nil {
			return err
		}

		return s.mirror.MirrorExternalLink(tx, account.ID, identity.Provider, identity.Subject)
	})

	if err != nil {
		if db.IsDuplicateKeyError(err) {
			return s.resolveRace(identity)
		}
		return nil, core.NewIdentityError(core.ErrKeyAccountCreationFailed, err)
	}

	if err = event.FireAccountCreatedEvent(s.ctx, &account); err != nil {
		return nil, err
	}
	if err = event.FireExternalLoginLinkedEvent(s.ctx, &account, login); err != nil {
		return nil, err
	}

	return &account, nil
}

func (s *AccountLinkingServiceDefault) resolveRace(identity core.ProviderIdentity) (*models.Account, error) {
	login, err := s.logins.ByProviderIdentity(identity.Provider, identity.Subject)
	if err != nil {
		return nil, core.NewIdentityError(core.ErrKeyProviderIdentityTaken, err)
	}

	return s.accounts.AccountByID(login.AccountID)
}
