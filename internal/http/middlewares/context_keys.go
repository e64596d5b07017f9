package middlewares

// Keys for values stashed on the gin context.
const (
	CtxRequestID  = "request_id"
	CtxClientID   = "client_id"
	CtxSession    = "session.store"
	CtxCredential = "edge.credential"
)
