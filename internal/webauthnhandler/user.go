package webauthnhandler

import (
	"errors"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

// ErrCeremony is returned when a registration or login cannot be completed because of the client's input.
var ErrCeremony = errors.New("webauthn ceremony failed")

type sessionKey string

const (
	webAuthnSessionKey sessionKey = "webauthn_session"
	userIDSessionKey   sessionKey = "user_id"
)

// user implements [webauthn.User]. The user handle is the UTF-8 encoding of the id.
type user struct {
	id          string
	displayName string
	credentials []webauthn.Credential
}

// newRandomUser creates an anonymous user. Passkeys are discoverable so the user never types a name.
func newRandomUser() *user {
	id := uuid.NewString()
	return &user{id: id, displayName: "Lifter " + id[:8], credentials: nil}
}

func (u *user) WebAuthnID() []byte {
	return []byte(u.id)
}

func (u *user) WebAuthnName() string {
	return u.displayName
}

func (u *user) WebAuthnDisplayName() string {
	return u.displayName
}

func (u *user) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}
