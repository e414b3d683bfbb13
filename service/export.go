package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.accountd.dev/accountd/config"
	"go.accountd.dev/accountd/core"
	"go.accountd.dev/accountd/db/models"
	"gorm.io/gorm"
)

var _ core.ExportService = (*ExportServiceDefault)(nil)

func init() {
	core.RegisterService(core.ServiceInfo{
		ID: core.EXPORT_SERVICE,
		Factory: func() (core.Service, []core.ContextBuilderOption, error) {
			return NewExportService()
		},
	})
}

type ExportServiceDefault struct {
	ctx    core.Context
	config config.Manager
	db     *gorm.DB
}

func NewExportService() (*ExportServiceDefault, []core.ContextBuilderOption, error) {
	export := &ExportServiceDefault{}

	opts := core.ContextOptions(
		core.ContextWithStartupFunc(func(ctx core.Context) error {
			export.ctx = ctx
			export.config = ctx.Config()
			export.db = ctx.DB()
			return nil
		}),
	)

	return export, opts, nil
}

func (s *ExportServiceDefault) ID() string {
	return core.EXPORT_SERVICE
}

// ExportAccount assembles the versioned dump across every store. Any store
// failure fails the whole export; a silently partial dump would misrepresent
// what data is held.
func (s *ExportServiceDefault) ExportAccount(accountID uint) (*core.AccountExport, error) {
	var account models.Account
	if err := s.db.First(&account, accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.NewIdentityError(core.ErrKeyAccountNotFound, nil)
		}
		return nil, core.NewIdentityError(core.ErrKeyExportFailed, err)
	}

	export := &core.AccountExport{
		ExportVersion: core.ExportVersion,
		ExportedAt:    time.Now().UTC(),
		Account: core.ExportAccountSection{
			PublicID:    account.PublicID,
			Email:       account.Email,
			DisplayName: account.DisplayName,
			Slug:        account.Slug,
			Active:      account.Active,
			Roles:       account.RoleList(),
			CreatedAt:   account.CreatedAt,
			UpdatedAt:   account.UpdatedAt,
		},
	}

	auth, err := s.exportAuth(accountID)
	if err != nil {
		return nil, err
	}
	export.Authentication = *auth

	logins, err := s.exportLogins(accountID)
	if err != nil {
		return nil, err
	}
	export.ExternalLogins = logins

	profile, err := s.exportProfile(accountID)
	if err != nil {
		return nil, err
	}
	export.Profile = profile

	preferences, err := s.exportPreferences(accountID)
	if err != nil {
		return nil, err
	}
	export.Preferences = *preferences

	return export, nil
}

// exportAuth reports the presence of a password, never its hash. The query
// selects the timestamp column only, so hash material cannot leak into the
// export path by accident.
func (s *ExportServiceDefault) exportAuth(accountID uint) (*core.ExportAuthSection, error) {
	var credential models.Credential

	err := s.db.Model(&models.Credential{}).
		Select("hash_updated_at").
		Where("account_id = ?", accountID).
		First(&credential).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &core.ExportAuthSection{HasPassword: false}, nil
	}
	if err != nil {
		return nil, core.NewIdentityError(core.ErrKeyExportFailed, fmt.Errorf("authentication store: %w", err))
	}

	updatedAt := credential.HashUpdatedAt
	return &core.ExportAuthSection{HasPassword: true, PasswordUpdatedAt: &updatedAt}, nil
}

func (s *ExportServiceDefault) exportLogins(accountID uint) ([]core.ExportExternalLogin, error) {
	var logins []models.ExternalLogin

	if err := s.db.Model(&models.ExternalLogin{}).
		Where("account_id = ?", accountID).
		Order("linked_at ASC").
		Find(&logins).Error; err != nil {
		return nil, core.NewIdentityError(core.ErrKeyExportFailed, fmt.Errorf("external login store: %w", err))
	}

	return lo.Map(logins, func(login models.ExternalLogin, _ int) core.ExportExternalLogin {
		return core.ExportExternalLogin{
			Provider: login.Provider,
			Subject:  login.ProviderSubject,
			LinkedAt: login.LinkedAt,
		}
	}), nil
}

// exportProfile returns nil when no profile row exists. Absence is a
// legitimate state, not an error, and the export records it as such.
func (s *ExportServiceDefault) exportProfile(accountID uint) (*core.ExportProfileSection, error) {
	var profile models.Profile

	err := s.db.Model(&models.Profile{}).Where("account_id = ?", accountID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, core.NewIdentityError(core.ErrKeyExportFailed, fmt.Errorf("profile store: %w", err))
	}

	return &core.ExportProfileSection{
		RealName:  profile.RealName,
		Bio:       profile.Bio,
		AvatarURL: profile.AvatarURL,
		Location:  profile.Location,
		Website:   profile.Website,
		CreatedAt: profile.CreatedAt,
		UpdatedAt: profile.UpdatedAt,
	}, nil
}

// exportPreferences treats a missing row as a failure. Every account gets a
// preferences row at creation, so absence here means corrupted state.
func (s *ExportServiceDefault) exportPreferences(accountID uint) (*core.ExportPreferenceSection, error) {
	var preferences models.Preferences

	err := s.db.Model(&models.Preferences{}).Where("account_id = ?", accountID).First(&preferences).Error
	if err != nil {
		return nil, core.NewIdentityError(core.ErrKeyExportFailed, fmt.Errorf("preference store: %w", err))
	}

	return &core.ExportPreferenceSection{
		PublicProfile: preferences.PublicProfile,
		ShowEmail:     preferences.ShowEmail,
		Theme:         preferences.Theme,
		Locale:        preferences.Locale,
		CreatedAt:     preferences.CreatedAt,
		UpdatedAt:     preferences.UpdatedAt,
	}, nil
}
