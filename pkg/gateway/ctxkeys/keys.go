package ctxkeys

// ContextKey is used for storing request-scoped authentication and metadata in context
type ContextKey string

const (
	// Claims stores the validated access-token claims of the request
	Claims ContextKey = "jwt_claims"

	// RequestIP stores the client IP resolved from the socket peer and trusted proxies
	RequestIP ContextKey = "request_ip"
)
