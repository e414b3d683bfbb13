package event

import (
	"fmt"

	gookitEvent "github.com/gookit/event"
	"go.accountd.dev/accountd/core"
)

// Helper function to get and check an event
func getEvent(ctx core.Context, eventName string) (core.Eventer, error) {
	evt, ok := ctx.Event().GetEvent(eventName)
	if !ok {
		return nil, fmt.Errorf("event %s not found", eventName)
	}

	return evt.(core.Eventer), nil
}

// Helper function to assert event type
func assertEventType[T core.Eventer](evt core.Eventer, eventName string) (T, error) {
	typedEvt, ok := evt.(T)
	if !ok {
		return *new(T), fmt.Errorf("event %s is not of expected type", eventName)
	}
	return typedEvt, nil
}

// Fire configures and fires a registered event on the context's manager.
func Fire[T core.Eventer](ctx core.Context, eventName string, configure func(T) error) error {
	evt, err := getEvent(ctx, eventName)
	if err != nil {
		return err
	}

	typedEvt, err := assertEventType[T](evt, eventName)
	if err != nil {
		return err
	}

	if configure != nil {
		if err = configure(typedEvt); err != nil {
			return err
		}
	}

	return ctx.Event().FireEvent(typedEvt)
}

// Listen subscribes a typed handler to a registered event.
func Listen[T core.Eventer](ctx core.Context, eventName string, handler func(T) error) {
	ctx.Event().On(eventName, gookitEvent.ListenerFunc(func(e gookitEvent.Event) error {
		eventer, ok := e.(core.Eventer)
		if !ok {
			return fmt.Errorf("event %s is not of expected type", eventName)
		}

		typedEvt, err := assertEventType[T](eventer, eventName)
		if err != nil {
			return err
		}

		return handler(typedEvt)
	}))
}
