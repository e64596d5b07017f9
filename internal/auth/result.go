package auth

// Kind classifies a failed Result. Callers branch on Success; Kind is for
// the console's own bookkeeping (status codes, metrics).
type Kind int

const (
	KindNone Kind = iota
	// KindUnauthorized: no local token, the network was never touched.
	KindUnauthorized
	// KindNetwork: transport, timeout or an unparseable response.
	KindNetwork
	// KindServerRejected: the backend answered with success=false.
	KindServerRejected
	// KindStorage: the backend succeeded but the session could not be saved.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUnauthorized:
		return "unauthorized"
	case KindNetwork:
		return "network"
	case KindServerRejected:
		return "server_rejected"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

const (
	msgNoToken      = "No authentication token found"
	msgNetwork      = "Network error occurred"
	msgStorage      = "Session could not be saved"
	errUnauthorized = "Unauthorized"
)

// Result is the uniform outcome of every Auth Client operation.
type Result[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`

	Kind Kind `json:"-"`
	// Status is the backend HTTP status, zero when no response arrived.
	Status int `json:"-"`
}

func unauthorized[T any]() Result[T] {
	return Result[T]{
		Success: false,
		Message: msgNoToken,
		Error:   errUnauthorized,
		Kind:    KindUnauthorized,
	}
}

func networkFailure[T any](err error) Result[T] {
	return Result[T]{
		Success: false,
		Message: msgNetwork,
		Error:   err.Error(),
		Kind:    KindNetwork,
	}
}
