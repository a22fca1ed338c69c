package contexthelpers

import (
	"context"
	"net/http"
)

func AuthenticateContext(r *http.Request, userID string) *http.Request {
	return r.WithContext(WithAuthenticatedUser(r.Context(), userID))
}

// WithAuthenticatedUser marks ctx as belonging to the logged-in user userID.
func WithAuthenticatedUser(ctx context.Context, userID string) context.Context {
	ctx = context.WithValue(ctx, IsAuthenticatedContextKey, true)
	return context.WithValue(ctx, AuthenticatedUserIDContextKey, userID)
}

func SetCurrentPath(r *http.Request, currentPath string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, CurrentPathContextKey, currentPath)
	return r.WithContext(ctx)
}

func SetCSPNonce(r *http.Request, cspNonce string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, CspNonceContextKey, cspNonce)
	return r.WithContext(ctx)
}

func SetTraceID(r *http.Request, traceID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), TraceIDContextKey, traceID))
}
