package event

import (
	"go.accountd.dev/accountd/core"
	"go.accountd.dev/accountd/db/models"
)

const (
	EVENT_EXTERNAL_LOGIN_LINKED = "account.external_login_linked"
)

func init() {
	core.RegisterEvent(EVENT_EXTERNAL_LOGIN_LINKED, &ExternalLoginLinkedEvent{})
}

type ExternalLoginLinkedEvent struct {
	core.Event
}

func (e *ExternalLoginLinkedEvent) SetAccount(account *models.Account) {
	e.Set("account", account)
}

func (e ExternalLoginLinkedEvent) Account() *models.Account {
	return e.Get("account").(*models.Account)
}

func (e *ExternalLoginLinkedEvent) SetLogin(login *models.ExternalLogin) {
	e.Set("login", login)
}

func (e ExternalLoginLinkedEvent) Login() *models.ExternalLogin {
	return e.Get("login").(*models.ExternalLogin)
}

func FireExternalLoginLinkedEvent(ctx core.Context, account *models.Account, login *models.ExternalLogin) error {
	return Fire[*ExternalLoginLinkedEvent](ctx, EVENT_EXTERNAL_LOGIN_LINKED, func(evt *ExternalLoginLinkedEvent) error {
		evt.SetAccount(account)
		evt.SetLogin(login)
		return nil
	})
}
