package events

import (
	"context"
	"sync"
	"time"

	"github.com/Shepherdphiri/z-radio/internal/domain"
	"github.com/Shepherdphiri/z-radio/pkg/log"
	"github.com/Shepherdphiri/z-radio/pkg/pubsub"
)

const publishTimeout = 5 * time.Second

type item struct {
	channel string
	event   *pubsub.Event
}

// Emitter publishes broadcast lifecycle events without blocking callers.
// Events beyond the queue capacity are dropped.
type Emitter struct {
	pub pubsub.Publisher

	mu     sync.RWMutex
	closed bool
	queue  chan item
	wg     sync.WaitGroup
}

// NewEmitter starts an emitter over pub with the given queue capacity.
func NewEmitter(pub pubsub.Publisher, queueSize int) *Emitter {
	if queueSize <= 0 {
		queueSize = 1024
	}
	e := &Emitter{
		pub:   pub,
		queue: make(chan item, queueSize),
	}
	e.wg.Add(1)
	go e.run()
	return e
}

func (e *Emitter) BroadcastCreated(b *domain.Broadcast) {
	e.emit(pubsub.EventBroadcastCreated, b)
}

func (e *Emitter) BroadcastStopped(b *domain.Broadcast) {
	e.emit(pubsub.EventBroadcastStopped, b)
}

// ListenerCountChanged reports the new membership size of b's room.
func (e *Emitter) ListenerCountChanged(b *domain.Broadcast, count int) {
	cp := *b
	cp.ListenerCount = count
	e.emit(pubsub.EventListenerCountChanged, &cp)
}

func (e *Emitter) emit(eventType string, b *domain.Broadcast) {
	l := log.L()

	event, err := pubsub.NewEvent(eventType, b.RoomID, pubsub.BroadcastPayload{
		BroadcastID:   b.ID,
		RoomID:        b.RoomID,
		Title:         b.Title,
		AudioQuality:  string(b.AudioQuality),
		IsActive:      b.IsActive,
		ListenerCount: b.ListenerCount,
	})
	if err != nil {
		l.Error().Err(err).Str("event_type", eventType).Msg("failed to build event")
		return
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}
	select {
	case e.queue <- item{channel: pubsub.RoomEventsChannel(b.RoomID), event: event}:
	default:
		l.Warn().
			Str("event_type", eventType).
			Str(log.FieldRoomID, b.RoomID).
			Msg("event queue full, dropping event")
	}
}

func (e *Emitter) run() {
	defer e.wg.Done()
	l := log.L()

	for it := range e.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := e.pub.Publish(ctx, it.channel, it.event); err != nil {
			l.Warn().Err(err).
				Str("event_type", it.event.Type).
				Str(log.FieldRoomID, it.event.RoomID).
				Msg("failed to publish event")
		}
		cancel()
	}
}

// Close stops accepting events and waits for queued ones to be published.
func (e *Emitter) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	e.wg.Wait()
}
