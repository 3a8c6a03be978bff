package registry

import (
	"context"
	"sync"
	"time"

	"github.com/Shepherdphiri/z-radio/internal/domain"
	"github.com/Shepherdphiri/z-radio/pkg/log"
)

// SyncCountWriter persists listener counts inline. It suits in-memory stores.
type SyncCountWriter struct {
	Store Store
}

func (w SyncCountWriter) WriteListenerCount(ctx context.Context, broadcastID string, count int) {
	if _, err := w.Store.Update(ctx, broadcastID, domain.BroadcastPatch{ListenerCount: &count}); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).
			Str(log.FieldBroadcastID, broadcastID).
			Int(log.FieldCount, count).
			Msg("failed to persist listener count")
	}
}

// WriteBehind coalesces listener count writes and persists them on a
// background goroutine. Only the latest count per broadcast is written.
type WriteBehind struct {
	store   Store
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]int
	closed  bool

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

// NewWriteBehind starts a writer over store. timeout bounds each store call.
func NewWriteBehind(store Store, timeout time.Duration) *WriteBehind {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	w := &WriteBehind{
		store:   store,
		timeout: timeout,
		pending: make(map[string]int),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go w.run()
	return w
}

// WriteListenerCount records count as the latest value for broadcastID. It never blocks on the store.
func (w *WriteBehind) WriteListenerCount(_ context.Context, broadcastID string, count int) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.pending[broadcastID] = count
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Pending reports how many broadcasts have an unwritten count.
func (w *WriteBehind) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Close flushes outstanding counts and stops the writer.
func (w *WriteBehind) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.stopped
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	<-w.stopped
	return nil
}

func (w *WriteBehind) run() {
	defer close(w.stopped)
	for {
		select {
		case <-w.wake:
			w.flush()
		case <-w.done:
			w.flush()
			return
		}
	}
}

func (w *WriteBehind) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := w.pending
	w.pending = make(map[string]int, len(batch))
	w.mu.Unlock()

	l := log.L()
	for id, count := range batch {
		n := count
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		_, err := w.store.Update(ctx, id, domain.BroadcastPatch{ListenerCount: &n})
		cancel()
		if err != nil {
			l.Warn().Err(err).
				Str(log.FieldBroadcastID, id).
				Int(log.FieldCount, n).
				Msg("write-behind listener count failed")
		}
	}
}
