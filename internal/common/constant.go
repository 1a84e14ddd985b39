package common

// AuthorizationHeaderName is the HTTP header carrying the bearer token on
// outbound protected requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "

// RequestIDHeaderName carries a client-generated request id so that
// individual calls can be correlated in logs on both sides.
const RequestIDHeaderName = "X-Request-Id"

// DefaultPageSize is the page size the backend uses for paginated
// transaction listings.
const DefaultPageSize = 10
