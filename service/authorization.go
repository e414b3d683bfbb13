package service

import (
	"go.accountd.dev/accountd/config"
	"go.accountd.dev/accountd/core"
	"gorm.io/gorm"
)

var _ core.AuthorizationService = (*AuthorizationServiceDefault)(nil)

func init() {
	core.RegisterService(core.ServiceInfo{
		ID: core.AUTHORIZATION_SERVICE,
		Factory: func() (core.Service, []core.ContextBuilderOption, error) {
			return NewAuthorizationService()
		},
		Depends: []string{core.ACCOUNT_SERVICE},
	})
}

// AuthorizationServiceDefault answers verification and role queries from
// account state. Role tags stay opaque strings here.
type AuthorizationServiceDefault struct {
	ctx      core.Context
	config   config.Manager
	db       *gorm.DB
	accounts core.AccountService
}

func NewAuthorizationService() (*AuthorizationServiceDefault, []core.ContextBuilderOption, error) {
	authorization := &AuthorizationServiceDefault{}

	opts := core.ContextOptions(
		core.ContextWithStartupFunc(func(ctx core.Context) error {
			authorization.ctx = ctx
			authorization.config = ctx.Config()
			authorization.db = ctx.DB()
			authorization.accounts = core.GetService[core.AccountService](ctx, core.ACCOUNT_SERVICE)
			return nil
		}),
	)

	return authorization, opts, nil
}

func (s *AuthorizationServiceDefault) ID() string {
	return core.AUTHORIZATION_SERVICE
}

func (s *AuthorizationServiceDefault) EmailVerified(accountID uint) (bool, error) {
	account, err := s.accounts.AccountByID(accountID)
	if err != nil {
		return false, err
	}

	return account.Verified, nil
}

func (s *AuthorizationServiceDefault) Roles(accountID uint) ([]string, error) {
	account, err := s.accounts.AccountByID(accountID)
	if err != nil {
		return nil, err
	}

	return account.RoleList(), nil
}
