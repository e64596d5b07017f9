package backend

import (
	"context"
	"fmt"
	"net/http"
)

// RejectedError is a well-formed backend answer with success=false.
type RejectedError struct {
	Op      string
	Status  int
	Message string
	Detail  string
}

func (e *RejectedError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Detail != "" && e.Detail != msg {
		return fmt.Sprintf("%s: %s (%s)", e.Op, msg, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Unauthorized reports whether the backend refused the bearer token.
func (e *RejectedError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

type Doer interface {
	Do(ctx context.Context, call Call, out any) (int, error)
}

// Expect performs call and unwraps the envelope. Transport failures come
// back as *TransportError, success=false as *RejectedError. A successful
// envelope without data yields a nil pointer and no error.
func Expect[T any](ctx context.Context, api Doer, call Call) (*T, error) {
	if call.Op == "" {
		call.Op = call.Method + " " + call.Path
	}

	var env Envelope[T]
	status, err := api.Do(ctx, call, &env)
	if err != nil {
		return nil, err
	}

	if !env.Success {
		return nil, &RejectedError{
			Op:      call.Op,
			Status:  status,
			Message: env.Message,
			Detail:  string(env.Error),
		}
	}

	return env.Data, nil
}
