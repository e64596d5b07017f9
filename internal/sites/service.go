package sites

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/geocoder89/safeguard/internal/backend"
)

// Service reads and edits the caller's block list on the backend.
type Service struct {
	api backend.Doer
}

func NewService(api backend.Doer) *Service {
	return &Service{api: api}
}

func (s *Service) List(ctx context.Context, token string) ([]Site, error) {
	list, err := backend.Expect[[]Site](ctx, s.api, backend.Call{
		Op:     "GET /blocked-sites",
		Method: http.MethodGet,
		Path:   "/blocked-sites",
		Token:  token,
	})
	if err != nil {
		return nil, err
	}
	if list == nil {
		return []Site{}, nil
	}
	return *list, nil
}

// Add normalises the URL before it leaves the console.
func (s *Service) Add(ctx context.Context, token string, in AddInput) (Site, error) {
	host, err := NormalizeURL(in.URL)
	if err != nil {
		return Site{}, err
	}
	in.URL = host

	site, err := backend.Expect[Site](ctx, s.api, backend.Call{
		Op:     "POST /blocked-sites",
		Method: http.MethodPost,
		Path:   "/blocked-sites",
		Token:  token,
		Body:   in,
	})
	if err != nil {
		return Site{}, err
	}
	if site == nil {
		return Site{URL: host, Category: in.Category, Description: in.Description}, nil
	}
	return *site, nil
}

func (s *Service) Remove(ctx context.Context, token, id string) error {
	_, err := backend.Expect[json.RawMessage](ctx, s.api, backend.Call{
		Op:     "DELETE /blocked-sites/:id",
		Method: http.MethodDelete,
		Path:   "/blocked-sites/" + url.PathEscape(id),
		Token:  token,
	})
	return err
}
