package session

import (
	"context"
	"sync"
)

const watchBuffer = 16

// hub fans changes out to the watchers of each client. A slow watcher
// misses changes rather than blocking the writer.
type hub struct {
	mu       sync.Mutex
	watchers map[string]map[chan Change]func() bool
	closed   bool
}

func newHub() *hub {
	return &hub{watchers: make(map[string]map[chan Change]func() bool)}
}

// subscribe returns a channel that closes when ctx is done or the hub is
// closed.
func (h *hub) subscribe(ctx context.Context, client string) <-chan Change {
	ch := make(chan Change, watchBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return ch
	}

	set, ok := h.watchers[client]
	if !ok {
		set = make(map[chan Change]func() bool)
		h.watchers[client] = set
	}
	set[ch] = context.AfterFunc(ctx, func() { h.drop(client, ch) })

	return ch
}

func (h *hub) drop(client string, ch chan Change) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.watchers[client]
	if !ok {
		return
	}
	if _, live := set[ch]; live {
		delete(set, ch)
		close(ch)
	}
	if len(set) == 0 {
		delete(h.watchers, client)
	}
}

func (h *hub) publish(client string, c Change) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.watchers[client] {
		select {
		case ch <- c:
		default:
		}
	}
}

func (h *hub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, set := range h.watchers {
		n += len(set)
	}
	return n
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, set := range h.watchers {
		for ch, stop := range set {
			stop()
			close(ch)
		}
	}
	h.watchers = make(map[string]map[chan Change]func() bool)
}
