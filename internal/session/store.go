package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/safeguard/internal/domain/user"
)

// Storage keys, shared with the browser bundle.
const (
	TokenKey = "auth_token"
	UserKey  = "user"
)

var ErrEmptyToken = errors.New("session token is empty")

// Store is the single source of truth for "am I logged in" and "what is
// my role" for one client. A Store without storage (nil) behaves like a
// non-interactive context: every read reports absent.
type Store struct {
	storage Storage
	log     *slog.Logger
}

func NewStore(storage Storage, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{storage: storage, log: log}
}

func (s *Store) usable() bool {
	return s != nil && s.storage != nil
}

// SetSession persists token and user together.
func (s *Store) SetSession(ctx context.Context, token string, u user.User) error {
	if token == "" {
		return ErrEmptyToken
	}
	if !s.usable() {
		return nil
	}

	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	err = s.storage.Set(ctx, map[string]string{
		TokenKey: token,
		UserKey:  string(raw),
	})
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// SetUser replaces the cached user. It is a no-op without a token. The
// token is rewritten alongside the user so both keys share one expiry.
func (s *Store) SetUser(ctx context.Context, u user.User) error {
	token, ok := s.GetToken(ctx)
	if !ok {
		return nil
	}

	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	err = s.storage.Set(ctx, map[string]string{
		TokenKey: token,
		UserKey:  string(raw),
	})
	if err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context) (string, bool) {
	if !s.usable() {
		return "", false
	}

	v, err := s.storage.Get(ctx, TokenKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.WarnContext(ctx, "session token read failed", "err", err)
		}
		return "", false
	}

	return v, v != ""
}

// GetUser never fails: a missing, unreadable or malformed record is absent.
// A user left behind by an expired token is absent too.
func (s *Store) GetUser(ctx context.Context) (user.User, bool) {
	if _, ok := s.GetToken(ctx); !ok {
		return user.User{}, false
	}

	raw, err := s.storage.Get(ctx, UserKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.WarnContext(ctx, "session user read failed", "err", err)
		}
		return user.User{}, false
	}

	var u *user.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u == nil {
		s.log.WarnContext(ctx, "session user malformed", "err", err)
		return user.User{}, false
	}

	return *u, true
}

// Clear removes token and user. Clearing an empty store is fine.
func (s *Store) Clear(ctx context.Context) error {
	if !s.usable() {
		return nil
	}

	if err := s.storage.Delete(ctx, TokenKey, UserKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Store) IsAuthenticated(ctx context.Context) bool {
	_, ok := s.GetToken(ctx)
	return ok
}

func (s *Store) IsAdmin(ctx context.Context) bool {
	u, ok := s.GetUser(ctx)
	return ok && u.IsAdmin()
}

// Watch forwards storage change notifications. Without storage the
// returned channel simply closes when ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan Change, error) {
	if !s.usable() {
		ch := make(chan Change)
		go func() {
			<-ctx.Done()
			close(ch)
		}()
		return ch, nil
	}
	return s.storage.Watch(ctx)
}
