package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/myrjola/liftplan/internal/contexthelpers"
	"github.com/myrjola/liftplan/internal/identity"
)

func TestProvider_CurrentUserID(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		want    string
		wantErr error
	}{
		{
			name:    "anonymous",
			ctx:     context.Background(),
			want:    "",
			wantErr: identity.ErrUnauthenticated,
		},
		{
			name:    "authenticated without id",
			ctx:     contexthelpers.WithAuthenticatedUser(context.Background(), ""),
			want:    "",
			wantErr: identity.ErrUnauthenticated,
		},
		{
			name:    "authenticated",
			ctx:     contexthelpers.WithAuthenticatedUser(context.Background(), "user-1"),
			want:    "user-1",
			wantErr: nil,
		},
	}
	provider := identity.NewProvider()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := provider.CurrentUserID(tt.ctx)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CurrentUserID() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("CurrentUserID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatic(t *testing.T) {
	if _, err := identity.Static("").CurrentUserID(t.Context()); !errors.Is(err, identity.ErrUnauthenticated) {
		t.Errorf("empty static identity error = %v", err)
	}
	got, err := identity.Static("tool").CurrentUserID(t.Context())
	if err != nil || got != "tool" {
		t.Errorf("CurrentUserID() = %q, %v", got, err)
	}
}
