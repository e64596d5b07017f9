package gate

import (
	"context"

	"github.com/geocoder89/safeguard/internal/session"
)

// WatchedSession is a Session that can report changes to its storage.
type WatchedSession interface {
	Session
	Watch(ctx context.Context) (<-chan session.Change, error)
}

// Watch streams gate decisions for path. It starts with Checking, then the
// current decision, then re-evaluates after every reported change. The
// channel closes when ctx ends or the change feed does.
func Watch(ctx context.Context, s WatchedSession, path string, kind Kind) (<-chan Decision, error) {
	changes, err := s.Watch(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan Decision, 1)
	go func() {
		defer close(out)

		send := func(d Decision) bool {
			select {
			case out <- d:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(Decision{State: Checking}) {
			return
		}
		last := Check(ctx, s, path, kind)
		if !send(last) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				d := Check(ctx, s, path, kind)
				if d == last {
					continue
				}
				last = d
				if !send(d) {
					return
				}
			}
		}
	}()

	return out, nil
}
