package core

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gookit/event"
)

var (
	eventRegistry      = make(map[string]Eventer)
	eventRegistryMutex sync.RWMutex
)

// Eventer is what the registry stores: a gookit event whose name is
// assigned at registration time rather than at construction.
type Eventer interface {
	event.Event
	SetName(name string) Eventer
}

var _ Eventer = (*Event)(nil)

// Event is the base type domain events embed. It satisfies the gookit event
// interface and carries its payload as a lazily allocated key/value map.
type Event struct {
	name    string
	data    map[string]any
	target  any
	aborted bool
}

func (e *Event) Abort(abort bool) {
	e.aborted = abort
}

func (e *Event) Fill(target any, data event.M) *Event {
	if data != nil {
		e.data = data
	}

	e.target = target
	return e
}

func (e *Event) AttachTo(em event.ManagerFace) {
	em.AddEvent(e)
}

func (e *Event) Get(key string) any {
	if v, ok := e.data[key]; ok {
		return v
	}

	return nil
}

// Add sets the value only when the key is not already present.
func (e *Event) Add(key string, val any) {
	if _, ok := e.data[key]; !ok {
		e.Set(key, val)
	}
}

func (e *Event) Set(key string, val any) {
	if e.data == nil {
		e.data = make(map[string]any)
	}

	e.data[key] = val
}

func (e *Event) Name() string {
	return e.name
}

func (e *Event) Data() map[string]any {
	return e.data
}

func (e *Event) IsAborted() bool {
	return e.aborted
}

func (e *Event) Target() any {
	return e.target
}

func (e *Event) SetName(name string) Eventer {
	e.name = name
	return e
}

func (e *Event) SetData(data event.M) event.Event {
	if data != nil {
		e.data = data
	}
	return e
}

func (e *Event) SetTarget(target any) *Event {
	e.target = target
	return e
}

func RegisterEvent(id string, event Eventer) {
	eventRegistryMutex.Lock()
	defer eventRegistryMutex.Unlock()

	if _, ok := eventRegistry[id]; ok {
		panic(fmt.Sprintf("event %s already registered", id))
	}

	event.SetName(id)

	eventRegistry[id] = event
}

func GetEvents() []Eventer {
	eventRegistryMutex.RLock()
	defer eventRegistryMutex.RUnlock()

	keys := make([]string, 0, len(eventRegistry))

	for k := range eventRegistry {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	events := make([]Eventer, 0, len(eventRegistry))

	for _, k := range keys {
		events = append(events, eventRegistry[k])
	}

	return events
}
