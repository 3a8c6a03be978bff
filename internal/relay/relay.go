package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/Shepherdphiri/z-radio/internal/domain"
	"github.com/Shepherdphiri/z-radio/internal/membership"
	"github.com/Shepherdphiri/z-radio/internal/metrics"
	"github.com/Shepherdphiri/z-radio/internal/registry"
	"github.com/Shepherdphiri/z-radio/pkg/log"
)

// Peer is one connection as the relay sees it.
type Peer interface {
	membership.Member
	Session() *domain.Session
}

// EventSink receives listener count changes. *events.Emitter satisfies it.
type EventSink interface {
	ListenerCountChanged(b *domain.Broadcast, count int)
}

// Relay interprets client messages, keeps room membership and the registry's
// listener counts in step, and fans messages out to room members.
type Relay struct {
	// announcements counts AnnounceRoom calls. A join or leave that saw it
	// move since its lookup re-resolves the broadcast under the room lock.
	announcements atomic.Uint64

	table   *membership.Table
	store   registry.Store
	counts  registry.CountWriter
	events  EventSink
	metrics *metrics.Metrics
}

// New creates a relay. events and m may be nil.
func New(table *membership.Table, store registry.Store, counts registry.CountWriter, events EventSink, m *metrics.Metrics) *Relay {
	return &Relay{
		table:   table,
		store:   store,
		counts:  counts,
		events:  events,
		metrics: m,
	}
}

// Connect greets a new peer with its session id.
func (r *Relay) Connect(ctx context.Context, p Peer) {
	r.send(ctx, p, &domain.ConnectedMessage{
		Type:      domain.MsgTypeConnected,
		SessionID: p.Session().ID,
	})
}

// HandleMessage processes one inbound frame from p. Frames are handled in
// arrival order per peer; anomalies are dropped without a reply.
func (r *Relay) HandleMessage(ctx context.Context, p Peer, raw []byte) {
	in, err := domain.ParseInbound(raw)
	if err != nil {
		r.anomaly(ctx, p, anomalyReason(err), err)
		return
	}

	session := p.Session()
	switch in.Kind {
	case domain.KindJoin:
		r.join(ctx, p, in.RoomID)

	case domain.KindLeave:
		current := session.CurrentRoom()
		if current == "" {
			r.anomaly(ctx, p, metrics.ReasonNotJoined, errors.New("leave-room while not joined"))
			return
		}
		if in.RoomID != "" && in.RoomID != current {
			r.anomaly(ctx, p, metrics.ReasonWrongRoom, errors.New("leave-room for a room not joined"))
			return
		}
		if roomID, ok := session.Leave(); ok {
			r.leave(ctx, p, roomID)
		}

	case domain.KindSignal:
		current := session.CurrentRoom()
		if current == "" {
			r.anomaly(ctx, p, metrics.ReasonNotJoined, errors.New(in.Type+" while not joined"))
			return
		}
		if in.RoomID != "" && in.RoomID != current {
			r.anomaly(ctx, p, metrics.ReasonWrongRoom, errors.New(in.Type+" for a room not joined"))
			return
		}
		r.forward(current, p, in)

	case domain.KindPing:
		r.send(ctx, p, &domain.PongMessage{Type: domain.MsgTypePong})
	}
}

// Disconnect releases p's membership. Only the first call has any effect.
func (r *Relay) Disconnect(ctx context.Context, p Peer) {
	roomID, first := p.Session().Close()
	if !first || roomID == "" {
		return
	}
	r.leave(ctx, p, roomID)

	s := p.Session()
	l := log.Ctx(ctx)
	l.Debug().
		Str(log.FieldRoomID, roomID).
		Dur("connected_for", time.Since(s.ConnectedAt)).
		Dur("idle_for", time.Since(s.LastActiveAt())).
		Msg("session closed, membership released")
}

// AnnounceRoom re-reads the room's broadcast and announces its state to the
// current members, persisting the live count alongside. Callers must have
// written the registry before calling it.
func (r *Relay) AnnounceRoom(ctx context.Context, roomID string) {
	r.announcements.Add(1)
	r.table.Inspect(roomID, func(ch membership.Change) {
		r.settle(ctx, r.lookup(ctx, roomID))(ch)
	})
}

// RoomSize returns the live membership size of roomID.
func (r *Relay) RoomSize(roomID string) int {
	return r.table.Size(roomID)
}

func (r *Relay) join(ctx context.Context, p Peer, roomID string) {
	l := log.Ctx(ctx)

	previous, err := p.Session().Join(roomID)
	if err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("join on closed session")
		return
	}
	if previous != "" && previous != roomID {
		r.leave(ctx, p, previous)
	}

	r.table.Join(roomID, p, r.resolveAndSettle(ctx, roomID))

	l.Info().Str(log.FieldRoomID, roomID).Msg("joined room")
}

func (r *Relay) leave(ctx context.Context, p Peer, roomID string) {
	r.table.Leave(roomID, p, r.resolveAndSettle(ctx, roomID))

	l := log.Ctx(ctx)
	l.Info().Str(log.FieldRoomID, roomID).Msg("left room")
}

// resolveAndSettle looks the broadcast up before the room lock is taken. If an
// announcement started in between, the record may be stale and is read again
// under the lock, so the last settle of a room always sees the current record.
func (r *Relay) resolveAndSettle(ctx context.Context, roomID string) membership.SettleFunc {
	seen := r.announcements.Load()
	b := r.lookup(ctx, roomID)
	return func(ch membership.Change) {
		if r.announcements.Load() != seen {
			b = r.lookup(ctx, roomID)
		}
		r.settle(ctx, b)(ch)
	}
}

// settle recomputes, persists and announces the room's count. It runs under
// the room lock, so it must not block.
func (r *Relay) settle(ctx context.Context, b *domain.Broadcast) membership.SettleFunc {
	return func(ch membership.Change) {
		active := false
		if b != nil {
			active = b.IsActive
			r.counts.WriteListenerCount(ctx, b.ID, ch.Size)
			if ch.Changed && r.events != nil {
				r.events.ListenerCountChanged(b, ch.Size)
			}
		}

		if r.metrics != nil {
			r.metrics.RoomsActive.Set(float64(r.table.Rooms()))
		}
		if len(ch.Members) == 0 {
			return
		}

		data, err := json.Marshal(domain.NewRoomUpdate(ch.RoomID, ch.Size, active))
		if err != nil {
			l := log.Ctx(ctx)
			l.Error().Err(err).Msg("failed to encode room-update")
			return
		}
		for _, m := range ch.Members {
			m.Send(data)
		}
		if r.metrics != nil {
			r.metrics.RoomUpdates.Inc()
		}
	}
}

// forward sends the frame exactly as received to every other member.
func (r *Relay) forward(roomID string, from Peer, in *domain.Inbound) {
	r.table.ForEachExcept(roomID, from, func(m membership.Member) {
		m.Send(in.Raw)
	})
	if r.metrics != nil {
		r.metrics.MessagesRelayed.WithLabelValues(in.Type).Inc()
	}
}

func (r *Relay) lookup(ctx context.Context, roomID string) *domain.Broadcast {
	b, err := r.store.GetByRoomID(ctx, roomID)
	if err != nil {
		if !errors.Is(err, registry.ErrBroadcastNotFound) {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("broadcast lookup failed")
		}
		return nil
	}
	return b
}

func (r *Relay) send(ctx context.Context, p Peer, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to encode message")
		return
	}
	p.Send(data)
}

func (r *Relay) anomaly(ctx context.Context, p Peer, reason string, err error) {
	l := log.Ctx(ctx)
	l.Warn().Err(err).
		Str(log.FieldSessionID, p.ID()).
		Str(log.FieldReason, reason).
		Msg("protocol anomaly, message dropped")
	if r.metrics != nil {
		r.metrics.ProtocolAnomalies.WithLabelValues(reason).Inc()
	}
}

func anomalyReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownType):
		return metrics.ReasonUnknownType
	case errors.Is(err, domain.ErrMissingRoomID):
		return metrics.ReasonMissingRoom
	default:
		return metrics.ReasonMalformed
	}
}
