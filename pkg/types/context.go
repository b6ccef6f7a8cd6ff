package types

// ContextKey is the type of request-scoped values stored in a context.
type ContextKey string

const (
	ContextKeyRequestID     ContextKey = "request_id"
	ContextKeySessionID     ContextKey = "session_id"
	ContextKeyRequestSource ContextKey = "request_source"
)
