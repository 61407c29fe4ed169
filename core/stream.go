package core

import (
	"sync"

	"loyaltyd/core/events"
)

const eventBacklogLimit = 256

// eventBroadcaster implements events.Emitter and fans every emitted event out
// to all registered subscribers. A bounded backlog of recent events is kept so
// late subscribers (e.g. a reconnecting websocket client) can catch up.
type eventBroadcaster struct {
	mu      sync.Mutex
	nextID  uint64
	subs    map[uint64]chan events.Event
	backlog []events.Event
}

func newEventBroadcaster() *eventBroadcaster {
	return &eventBroadcaster{subs: make(map[uint64]chan events.Event)}
}

// Emit implements events.Emitter. Subscribers that cannot keep up have the
// event dropped rather than blocking a state-changing operation.
func (b *eventBroadcaster) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.backlog = append(b.backlog, evt)
	if len(b.backlog) > eventBacklogLimit {
		b.backlog = b.backlog[len(b.backlog)-eventBacklogLimit:]
	}
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (b *eventBroadcaster) subscribe(buffer int) (<-chan events.Event, func(), []events.Event) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan events.Event, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	backlog := make([]events.Event, len(b.backlog))
	copy(backlog, b.backlog)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
		b.mu.Unlock()
	}
	return ch, cancel, backlog
}
