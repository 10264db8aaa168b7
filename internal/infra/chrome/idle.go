package chrome

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
)

// idleWatcher tracks in-flight network requests of one tab from CDP events.
// The page counts as idle once nothing has been in flight for a full window.
type idleWatcher struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	last     time.Time
	now      func() time.Time
}

func newIdleWatcher() *idleWatcher {
	return &idleWatcher{
		inflight: make(map[network.RequestID]struct{}),
		last:     time.Now(),
		now:      time.Now,
	}
}

// handle is registered with chromedp.ListenTarget.
func (w *idleWatcher) handle(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		if longLived(e.Type) {
			return
		}
		w.start(e.RequestID)
	case *network.EventLoadingFinished:
		w.finish(e.RequestID)
	case *network.EventLoadingFailed:
		w.finish(e.RequestID)
	}
}

// longLived reports resource types that never finish loading on their own.
func longLived(t network.ResourceType) bool {
	return t == network.ResourceTypeWebSocket || t == network.ResourceTypeEventSource
}

func (w *idleWatcher) start(id network.RequestID) {
	w.mu.Lock()
	w.inflight[id] = struct{}{}
	w.last = w.now()
	w.mu.Unlock()
}

func (w *idleWatcher) finish(id network.RequestID) {
	w.mu.Lock()
	delete(w.inflight, id)
	w.last = w.now()
	w.mu.Unlock()
}

// touch restarts the quiet window, e.g. right after the document is replaced.
func (w *idleWatcher) touch() {
	w.mu.Lock()
	w.last = w.now()
	w.mu.Unlock()
}

// idleFor returns how long the tab has had no request in flight.
func (w *idleWatcher) idleFor() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.inflight) > 0 {
		return 0
	}
	return w.now().Sub(w.last)
}

// wait blocks until the tab has been idle for window or ctx ends.
func (w *idleWatcher) wait(ctx context.Context, window time.Duration) error {
	if window <= 0 {
		return ctx.Err()
	}
	tick := window / 10
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		if w.idleFor() >= window {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
