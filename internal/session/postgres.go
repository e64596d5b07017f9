package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const notifyChannel = "safeguard_storage"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS client_storage (
	client_id  TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      TEXT        NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (client_id, key)
)`

var errBackendClosed = errors.New("storage backend closed")

// PostgresBackend keeps client storage in one table. Changes are
// broadcast with NOTIFY. A single LISTEN connection, opened outside the
// pool on the first Watch, feeds every watcher of this process.
type PostgresBackend struct {
	pool *pgxpool.Pool
	ttl  time.Duration
	hub  *hub

	listenMu sync.Mutex
	closed   bool
	stop     context.CancelFunc
	done     chan struct{}
}

func NewPostgresBackend(pool *pgxpool.Pool, ttl time.Duration) *PostgresBackend {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &PostgresBackend{pool: pool, ttl: ttl, hub: newHub()}
}

func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	_, err := b.pool.Exec(ctx, schemaSQL)
	if err != nil {
		return fmt.Errorf("create client_storage: %w", err)
	}
	return nil
}

func (b *PostgresBackend) ForClient(clientID string) Storage {
	return &postgresStorage{b: b, client: clientID}
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

func (b *PostgresBackend) Close() error {
	b.listenMu.Lock()
	b.closed = true
	stop, done := b.stop, b.done
	b.listenMu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
	b.hub.closeAll()
	b.pool.Close()
	return nil
}

// listen starts the shared listener once. It returns after LISTEN is in
// place so no change committed after Watch returns is missed.
func (b *PostgresBackend) listen(ctx context.Context) error {
	b.listenMu.Lock()
	defer b.listenMu.Unlock()

	if b.closed {
		return errBackendClosed
	}
	if b.done != nil {
		return nil
	}

	conn, err := b.connectListener(ctx)
	if err != nil {
		return err
	}

	lctx, cancel := context.WithCancel(context.Background())
	b.stop = cancel
	b.done = make(chan struct{})

	go b.dispatch(lctx, conn)
	return nil
}

func (b *PostgresBackend) connectListener(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.ConnectConfig(ctx, b.pool.Config().ConnConfig.Copy())
	if err != nil {
		return nil, fmt.Errorf("connect listener: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		closeConn(conn)
		return nil, fmt.Errorf("listen %s: %w", notifyChannel, err)
	}
	return conn, nil
}

// dispatch owns the listener connection and reconnects when it drops.
// Changes committed while it is down are not replayed.
func (b *PostgresBackend) dispatch(ctx context.Context, conn *pgx.Conn) {
	defer close(b.done)

	for {
		b.forward(ctx, conn)
		closeConn(conn)

		backoff := 100 * time.Millisecond
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}

			var err error
			conn, err = b.connectListener(ctx)
			if err == nil {
				break
			}
			backoff = min(backoff*2, 5*time.Second)
		}
	}
}

func (b *PostgresBackend) forward(ctx context.Context, conn *pgx.Conn) {
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return
		}

		var p notifyPayload
		if err := json.Unmarshal([]byte(n.Payload), &p); err != nil || p.Client == "" {
			continue
		}
		b.hub.publish(p.Client, p.Change)
	}
}

func closeConn(conn *pgx.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = conn.Close(ctx)
}

type postgresStorage struct {
	b      *PostgresBackend
	client string
}

type notifyPayload struct {
	Client string `json:"client"`
	Change
}

func (s *postgresStorage) Get(ctx context.Context, key string) (string, error) {
	var v string

	err := s.b.pool.QueryRow(ctx,
		`SELECT value
		 FROM client_storage
		 WHERE client_id = $1 AND key = $2 AND expires_at > now()`,
		s.client, key,
	).Scan(&v)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return v, nil
}

func (s *postgresStorage) Set(ctx context.Context, entries map[string]string) error {
	exp := time.Now().UTC().Add(s.b.ttl)

	return pgx.BeginFunc(ctx, s.b.pool, func(tx pgx.Tx) error {
		for key, val := range entries {
			_, err := tx.Exec(ctx,
				`INSERT INTO client_storage (client_id, key, value, expires_at)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT (client_id, key)
				 DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
				s.client, key, val, exp,
			)
			if err != nil {
				return err
			}
		}
		for key := range entries {
			if err := s.notify(ctx, tx, Change{Key: key}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *postgresStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, s.b.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`DELETE FROM client_storage WHERE client_id = $1 AND key = ANY($2)`,
			s.client, keys,
		)
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := s.notify(ctx, tx, Change{Key: key, Cleared: true}); err != nil {
				return err
			}
		}
		return nil
	})
}

// notify is delivered by postgres only when tx commits.
func (s *postgresStorage) notify(ctx context.Context, tx pgx.Tx, c Change) error {
	payload, err := json.Marshal(notifyPayload{Client: s.client, Change: c})
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, string(payload))
	return err
}

func (s *postgresStorage) Watch(ctx context.Context) (<-chan Change, error) {
	if err := s.b.listen(ctx); err != nil {
		return nil, err
	}
	return s.b.hub.subscribe(ctx, s.client), nil
}
