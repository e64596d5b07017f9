// Package gate decides, per page load, whether the current session may see
// a protected or admin page. It reads the Session Store, never the cookie.
package gate

import (
	"context"
	"net/url"
	"strings"
)

const (
	SignInPath    = "/signin"
	DashboardPath = "/dashboard"
)

type Kind int

const (
	Protected Kind = iota
	Admin
)

func (k Kind) String() string {
	if k == Admin {
		return "admin"
	}
	return "protected"
}

type State string

const (
	Checking              State = "checking"
	DeniedUnauthenticated State = "denied-unauthenticated"
	DeniedForbidden       State = "denied-forbidden"
	Admitted              State = "admitted"
)

// Terminal reports whether the page load is finished with this state.
func (s State) Terminal() bool {
	return s != Checking && s != ""
}

type Decision struct {
	State    State  `json:"state"`
	Redirect string `json:"redirect,omitempty"`
}

// Session is what the gate needs from the Session Store.
type Session interface {
	IsAuthenticated(ctx context.Context) bool
	IsAdmin(ctx context.Context) bool
}

func Check(ctx context.Context, s Session, path string, kind Kind) Decision {
	if s == nil || !s.IsAuthenticated(ctx) {
		return Decision{State: DeniedUnauthenticated, Redirect: SignInRedirect(path)}
	}
	if kind == Admin && !s.IsAdmin(ctx) {
		return Decision{State: DeniedForbidden, Redirect: DashboardPath}
	}
	return Decision{State: Admitted}
}

// SignInRedirect builds /signin?redirect=<path>. The path is
// percent-encoded except for its slashes.
func SignInRedirect(path string) string {
	if path == "" {
		path = "/"
	}
	return SignInPath + "?redirect=" + strings.ReplaceAll(url.QueryEscape(path), "%2F", "/")
}
