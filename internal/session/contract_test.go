package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/geocoder89/safeguard/internal/db"
	"github.com/geocoder89/safeguard/internal/redisclient"
)

// expireFunc makes every entry written so far expire.
type expireFunc func()

// runStorageContract checks the behaviour every Backend shares.
func runStorageContract(t *testing.T, open func(t *testing.T) (Backend, expireFunc)) {
	t.Run("set writes every key", func(t *testing.T) {
		ctx := context.Background()
		b, _ := open(t)
		s := b.ForClient(uuid.NewString())

		if err := s.Set(ctx, map[string]string{TokenKey: "tok", UserKey: `{"id":"u-1"}`}); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if v, err := s.Get(ctx, TokenKey); err != nil || v != "tok" {
			t.Fatalf("token = %q, %v", v, err)
		}
		if v, err := s.Get(ctx, UserKey); err != nil || v != `{"id":"u-1"}` {
			t.Fatalf("user = %q, %v", v, err)
		}
		if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("missing key err = %v", err)
		}
	})

	t.Run("delete removes keys", func(t *testing.T) {
		ctx := context.Background()
		b, _ := open(t)
		s := b.ForClient(uuid.NewString())

		_ = s.Set(ctx, map[string]string{TokenKey: "tok", UserKey: "{}"})
		if err := s.Delete(ctx, TokenKey, UserKey); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		for _, key := range []string{TokenKey, UserKey} {
			if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Fatalf("%s survived delete, err=%v", key, err)
			}
		}
		if err := s.Delete(ctx, TokenKey); err != nil {
			t.Fatalf("deleting an absent key: %v", err)
		}
	})

	t.Run("clients are isolated", func(t *testing.T) {
		ctx := context.Background()
		b, _ := open(t)
		a := b.ForClient(uuid.NewString())
		other := b.ForClient(uuid.NewString())

		_ = a.Set(ctx, map[string]string{TokenKey: "tok-a"})

		if _, err := other.Get(ctx, TokenKey); !errors.Is(err, ErrNotFound) {
			t.Fatalf("other client read a's token, err=%v", err)
		}
		if err := other.Delete(ctx, TokenKey); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if v, err := a.Get(ctx, TokenKey); err != nil || v != "tok-a" {
			t.Fatalf("a's token after other's delete = %q, %v", v, err)
		}
	})

	t.Run("entries expire", func(t *testing.T) {
		ctx := context.Background()
		b, expire := open(t)
		s := b.ForClient(uuid.NewString())

		_ = s.Set(ctx, map[string]string{TokenKey: "tok"})
		expire()

		if _, err := s.Get(ctx, TokenKey); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected expiry, got %v", err)
		}
	})

	t.Run("watch sees only its own client", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		b, _ := open(t)
		a := b.ForClient(uuid.NewString())
		other := b.ForClient(uuid.NewString())

		aCh, err := a.Watch(ctx)
		if err != nil {
			t.Fatalf("Watch: %v", err)
		}
		otherCh, err := other.Watch(ctx)
		if err != nil {
			t.Fatalf("Watch: %v", err)
		}

		_ = a.Set(ctx, map[string]string{TokenKey: "tok"})
		if c := nextChange(t, aCh); c.Key != TokenKey || c.Cleared {
			t.Fatalf("unexpected change %+v", c)
		}

		_ = a.Delete(ctx, TokenKey)
		if c := nextChange(t, aCh); c.Key != TokenKey || !c.Cleared {
			t.Fatalf("unexpected change %+v", c)
		}

		select {
		case c := <-otherCh:
			t.Fatalf("other client received %+v", c)
		case <-time.After(200 * time.Millisecond):
		}
	})

	t.Run("watch closes with its context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		b, _ := open(t)
		ch, err := b.ForClient(uuid.NewString()).Watch(ctx)
		if err != nil {
			t.Fatalf("Watch: %v", err)
		}

		cancel()

		deadline := time.After(2 * time.Second)
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
			case <-deadline:
				t.Fatalf("watch channel left open")
			}
		}
	})
}

func nextChange(t *testing.T, ch <-chan Change) Change {
	t.Helper()

	select {
	case c, ok := <-ch:
		if !ok {
			t.Fatalf("watch channel closed")
		}
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("no change delivered")
	}
	return Change{}
}

func TestMemoryBackend_StorageContract(t *testing.T) {
	runStorageContract(t, func(t *testing.T) (Backend, expireFunc) {
		b := NewMemoryBackend(time.Minute)
		t.Cleanup(func() { _ = b.Close() })

		now := time.Now()
		b.now = func() time.Time { return now }
		return b, func() { now = now.Add(2 * time.Minute) }
	})
}

func TestRedisBackend_StorageContract(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	runStorageContract(t, func(t *testing.T) (Backend, expireFunc) {
		client, err := redisclient.Connect(context.Background(), redisclient.Config{Addr: addr})
		if err != nil {
			t.Fatalf("redis: %v", err)
		}

		b := NewRedisBackend(client, time.Second)
		t.Cleanup(func() { _ = b.Close() })
		return b, func() { time.Sleep(1500 * time.Millisecond) }
	})
}

func openPostgres(t *testing.T, maxConns int32, ttl time.Duration) *PostgresBackend {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	pool, err := db.NewPool(context.Background(), dsn, maxConns)
	if err != nil {
		t.Fatalf("pg pool: %v", err)
	}

	b := NewPostgresBackend(pool, ttl)
	t.Cleanup(func() { _ = b.Close() })

	if err := b.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return b
}

func TestPostgresBackend_StorageContract(t *testing.T) {
	if os.Getenv("TEST_DB_DSN") == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	runStorageContract(t, func(t *testing.T) (Backend, expireFunc) {
		b := openPostgres(t, 0, time.Second)
		return b, func() { time.Sleep(1500 * time.Millisecond) }
	})
}

func TestPostgresBackend_WatchersDoNotHoldPoolConnections(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := openPostgres(t, 2, time.Hour)

	for i := 0; i < 10; i++ {
		if _, err := b.ForClient(uuid.NewString()).Watch(ctx); err != nil {
			t.Fatalf("Watch #%d: %v", i+1, err)
		}
	}

	if got := b.pool.Stat().AcquiredConns(); got != 0 {
		t.Fatalf("watchers hold %d pool connections", got)
	}

	getCtx, getCancel := context.WithTimeout(ctx, 2*time.Second)
	defer getCancel()

	if _, err := b.ForClient(uuid.NewString()).Get(getCtx, TokenKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get with watchers open: %v", err)
	}
}

func TestPostgresBackend_CloseEndsWatchers(t *testing.T) {
	b := openPostgres(t, 0, time.Hour)

	ch, err := b.ForClient(uuid.NewString()).Watch(context.Background())
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watch channel left open")
	}
	if _, err := b.ForClient("late").Watch(context.Background()); !errors.Is(err, errBackendClosed) {
		t.Fatalf("Watch after Close err = %v", err)
	}
}
