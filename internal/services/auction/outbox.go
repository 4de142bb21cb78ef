package auction

import (
	"motortrade/internal/domain"
	"motortrade/internal/events"
)

type directEvent struct {
	userID string
	evt    events.Event
}

type broadcastEvent struct {
	evt     events.Event
	exclude string
}

// outbox collects side effects of a transition. It is flushed only after the
// store transaction has committed.
type outbox struct {
	direct     []directEvent
	broadcasts []broadcastEvent
	notes      []domain.Notification
}

func (o *outbox) send(userID string, evt events.Event) {
	if userID == "" {
		return
	}
	o.direct = append(o.direct, directEvent{userID: userID, evt: evt})
}

func (o *outbox) broadcast(evt events.Event, exclude string) {
	o.broadcasts = append(o.broadcasts, broadcastEvent{evt: evt, exclude: exclude})
}

func (svc *auctionService) flush(o *outbox) {
	for _, d := range o.direct {
		svc.dispatch.SendToUser(d.userID, d.evt)
	}
	for _, b := range o.broadcasts {
		svc.dispatch.Broadcast(b.evt, b.exclude)
	}
	svc.notes.Mirror(o.notes...)
}
