// Package admin backs the admin console: the user directory and the
// temporary database access toggle.
package admin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/safeguard/internal/backend"
	"github.com/geocoder89/safeguard/internal/cache"
	"github.com/geocoder89/safeguard/internal/domain/user"
)

const recentWindow = 30 * 24 * time.Hour

// Directory lists users through the backend. Listings are cached per
// admin token for a short TTL; a refresh bypasses the cache.
type Directory struct {
	api   backend.Doer
	cache *cache.Cache[[]user.User]
}

func NewDirectory(api backend.Doer, ttl time.Duration) *Directory {
	return &Directory{api: api, cache: cache.New[[]user.User](ttl)}
}

func (d *Directory) List(ctx context.Context, token string, refresh bool) ([]user.User, error) {
	key := cacheKey(token)
	if !refresh {
		if users, ok := d.cache.Get(key); ok {
			return users, nil
		}
	}

	users, err := backend.Expect[[]user.User](ctx, d.api, backend.Call{
		Op:     "GET /users",
		Method: http.MethodGet,
		Path:   "/users",
		Token:  token,
	})
	if err != nil {
		d.cache.Delete(key)
		return nil, err
	}

	out := []user.User{}
	if users != nil {
		out = *users
	}
	d.cache.Set(key, out)
	return out, nil
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "users:" + hex.EncodeToString(sum[:8])
}

// Search matches term against first name, last name, email and username,
// ignoring case. An empty term keeps everyone.
func Search(users []user.User, term string) []user.User {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return users
	}

	out := make([]user.User, 0, len(users))
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.FirstName), term) ||
			strings.Contains(strings.ToLower(u.LastName), term) ||
			strings.Contains(strings.ToLower(u.Email), term) ||
			strings.Contains(strings.ToLower(u.Username), term) {
			out = append(out, u)
		}
	}
	return out
}

type Stats struct {
	TotalUsers    int `json:"totalUsers"`
	ActiveUsers   int `json:"activeUsers"`
	AdminUsers    int `json:"adminUsers"`
	RecentSignups int `json:"recentSignups"`
}

// ComputeStats counts signups in the 30 days before now. Users whose
// createdAt does not parse are left out of the recent count.
func ComputeStats(users []user.User, now time.Time) Stats {
	st := Stats{TotalUsers: len(users)}
	cutoff := now.Add(-recentWindow)

	for _, u := range users {
		if u.IsActive {
			st.ActiveUsers++
		}
		if u.IsAdmin() {
			st.AdminUsers++
		}
		if created, ok := parseTimestamp(u.CreatedAt); ok && created.After(cutoff) {
			st.RecentSignups++
		}
	}
	return st
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
