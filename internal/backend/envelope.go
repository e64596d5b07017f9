package backend

import (
	"bytes"
	"encoding/json"
)

// Envelope is the uniform backend response shape.
type Envelope[T any] struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    *T        `json:"data,omitempty"`
	Error   ErrorText `json:"error,omitempty"`
}

// ErrorText accepts the backend's error either as a plain string or as an
// object with a message (some validation failures arrive that way).
type ErrorText string

func (e *ErrorText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*e = ""
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*e = ErrorText(s)
		return nil
	}

	var obj struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if b[0] == '{' && json.Unmarshal(b, &obj) == nil {
		switch {
		case obj.Message != "":
			*e = ErrorText(obj.Message)
			return nil
		case obj.Code != "":
			*e = ErrorText(obj.Code)
			return nil
		}
	}

	*e = ErrorText(b)
	return nil
}
