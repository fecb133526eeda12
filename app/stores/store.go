// Package stores holds the client-side aggregates mirrored from engine updates.
// Each store owns one aggregate, updates it before notifying listeners, and
// re-emits the triggering update under its @type.
package stores

import (
	"nuclight.org/tgweb/pkg/emitter"
	"nuclight.org/tgweb/pkg/td"
)

// Gateway is the part of the controller stores subscribe to.
type Gateway interface {
	OnUpdate(h emitter.Handler[td.Update]) *emitter.Subscription
	OnClientUpdate(h emitter.Handler[td.ClientUpdate]) *emitter.Subscription
}

type publisher struct {
	events *emitter.Emitter[td.Object]
	subs   emitter.Bag
}

func newPublisher() *publisher {
	return &publisher{
		events: emitter.New[td.Object](),
	}
}

// On subscribes h to an event; the event name is the @type of the update that
// changed the store.
func (p *publisher) On(event string, h emitter.Handler[td.Object]) *emitter.Subscription {
	return p.events.On(event, h)
}

// Close detaches the store from the gateway. Listeners stay registered.
func (p *publisher) Close() {
	p.subs.Close()
}

func (p *publisher) emit(u td.Object) error {
	return p.events.Emit(u.Type(), u)
}
