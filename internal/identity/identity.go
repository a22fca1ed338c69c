// Package identity exposes the logged-in user of a request to the workout core.
package identity

import (
	"context"
	"errors"

	"github.com/myrjola/liftplan/internal/contexthelpers"
)

// ErrUnauthenticated is returned when the request carries no logged-in user.
var ErrUnauthenticated = errors.New("unauthenticated")

// Provider resolves the current user from the request context populated by the session middleware.
type Provider struct{}

// NewProvider creates a Provider.
func NewProvider() *Provider {
	return &Provider{}
}

// CurrentUserID returns the authenticated user id or ErrUnauthenticated.
func (p *Provider) CurrentUserID(ctx context.Context) (string, error) {
	if !contexthelpers.IsAuthenticated(ctx) {
		return "", ErrUnauthenticated
	}
	userID := contexthelpers.AuthenticatedUserID(ctx)
	if userID == "" {
		return "", ErrUnauthenticated
	}
	return userID, nil
}

// Static always reports the same user. It is used by tools and tests running outside an HTTP request.
type Static string

// CurrentUserID returns the static user id or ErrUnauthenticated when empty.
func (s Static) CurrentUserID(_ context.Context) (string, error) {
	if s == "" {
		return "", ErrUnauthenticated
	}
	return string(s), nil
}
