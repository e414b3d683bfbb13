package event

import (
	"go.accountd.dev/accountd/core"
)

const (
	EVENT_ACCOUNT_DELETED = "account.deleted"
)

func init() {
	core.RegisterEvent(EVENT_ACCOUNT_DELETED, &AccountDeletedEvent{})
}

type AccountDeletedEvent struct {
	core.Event
}

func (e *AccountDeletedEvent) SetAccountID(id uint) {
	e.Set("account_id", id)
}

func (e AccountDeletedEvent) AccountID() uint {
	return e.Get("account_id").(uint)
}

func (e *AccountDeletedEvent) SetEmail(email string) {
	e.Set("email", email)
}

func (e AccountDeletedEvent) Email() string {
	return e.Get("email").(string)
}

func FireAccountDeletedEvent(ctx core.Context, id uint, email string) error {
	return Fire[*AccountDeletedEvent](ctx, EVENT_ACCOUNT_DELETED, func(evt *AccountDeletedEvent) error {
		evt.SetAccountID(id)
		evt.SetEmail(email)
		return nil
	})
}
