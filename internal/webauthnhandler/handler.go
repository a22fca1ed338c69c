// Package webauthnhandler logs users in with passkeys and keeps the logged-in user in the server side session.
package webauthnhandler

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/myrjola/liftplan/internal/sqlite"
)

// ceremonyTimeout bounds the time between the start and finish of a registration or login.
const ceremonyTimeout = 5 * time.Minute

//nolint:gochecknoglobals // gob registration must happen once per process.
var registerGob sync.Once

type WebAuthnHandler struct {
	logger         *slog.Logger
	webAuthn       *webauthn.WebAuthn
	sessionManager *scs.SessionManager
	database       *sqlite.Database
}

// Config describes the relying party.
type Config struct {
	// Addr is the listen address used as the origin when FQDN is localhost.
	Addr string
	// FQDN is the relying party id.
	FQDN        string
	DisplayName string
}

func (c Config) origins() []string {
	if c.FQDN == "localhost" {
		//goland:noinspection HttpUrlsUsage // local development server.
		return []string{"http://" + c.Addr}
	}
	return []string{"https://" + c.FQDN}
}

func New(
	cfg Config,
	logger *slog.Logger,
	sessionManager *scs.SessionManager,
	db *sqlite.Database,
) (*WebAuthnHandler, error) {
	registerGob.Do(func() {
		gob.Register(webauthn.SessionData{}) //nolint:exhaustruct // only need to register the struct.
	})

	ceremony := webauthn.TimeoutConfig{Enforce: true, Timeout: ceremonyTimeout, TimeoutUVD: ceremonyTimeout}
	webAuthn, err := webauthn.New(&webauthn.Config{
		RPID:          cfg.FQDN,
		RPDisplayName: cfg.DisplayName,
		RPOrigins:     cfg.origins(),

		RPTopOrigins:                nil,
		RPTopOriginVerificationMode: protocol.TopOriginIgnoreVerificationMode,

		AttestationPreference: protocol.PreferNoAttestation,
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			RequireResidentKey:      new(true),
			ResidentKey:             protocol.ResidentKeyRequirementRequired,
			UserVerification:        protocol.VerificationDiscouraged,
		},
		Debug:                false,
		EncodeUserIDAsString: false,
		Timeouts:             webauthn.TimeoutsConfig{Login: ceremony, Registration: ceremony},
		MDS:                  nil,
	})
	if err != nil {
		return nil, fmt.Errorf("new webauthn: %w", err)
	}

	return &WebAuthnHandler{
		logger:         logger,
		webAuthn:       webAuthn,
		sessionManager: sessionManager,
		database:       db,
	}, nil
}

// BeginRegistration creates a new user and returns the credential creation options as JSON.
func (h *WebAuthnHandler) BeginRegistration(ctx context.Context) ([]byte, error) {
	u := newRandomUser()

	opts, session, err := h.webAuthn.BeginRegistration(
		u,
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			RequireResidentKey:      protocol.ResidentKeyNotRequired(),
			ResidentKey:             protocol.ResidentKeyRequirementRequired,
			UserVerification:        protocol.VerificationDiscouraged,
		}),
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired))
	if err != nil {
		return nil, fmt.Errorf("begin registration: %w", err)
	}

	h.sessionManager.Put(ctx, string(webAuthnSessionKey), *session)
	if err = h.upsertUser(ctx, u); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	out, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("JSON encode: %w", err)
	}
	return out, nil
}

func (h *WebAuthnHandler) ceremonySession(ctx context.Context) (webauthn.SessionData, error) {
	value := h.sessionManager.Pop(ctx, string(webAuthnSessionKey))
	session, ok := value.(webauthn.SessionData)
	if !ok {
		//nolint:exhaustruct // zero value.
		return webauthn.SessionData{}, fmt.Errorf("%w: no webauthn session data (got %T)", ErrCeremony, value)
	}
	return session, nil
}

// FinishRegistration stores the created passkey and logs the new user in.
func (h *WebAuthnHandler) FinishRegistration(r *http.Request) error {
	ctx := r.Context()
	session, err := h.ceremonySession(ctx)
	if err != nil {
		return err
	}

	u, err := h.getUser(ctx, session.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	credential, err := h.webAuthn.FinishRegistration(u, session, r)
	if err != nil {
		return fmt.Errorf("%w: finish registration: %w", ErrCeremony, err)
	}
	if err = h.upsertCredential(ctx, u.id, credential); err != nil {
		return fmt.Errorf("upsert webauthn credential: %w", err)
	}
	return h.login(ctx, u.id)
}

// BeginLogin returns the discoverable credential request options as JSON.
func (h *WebAuthnHandler) BeginLogin(ctx context.Context) ([]byte, error) {
	options, session, err := h.webAuthn.BeginDiscoverableLogin()
	if err != nil {
		return nil, fmt.Errorf("begin discoverable webauthn login: %w", err)
	}

	h.sessionManager.Put(ctx, string(webAuthnSessionKey), *session)

	out, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("json marshal webauthn options: %w", err)
	}
	return out, nil
}

// FinishLogin validates the passkey assertion and logs the user in.
func (h *WebAuthnHandler) FinishLogin(r *http.Request) error {
	ctx := r.Context()
	session, err := h.ceremonySession(ctx)
	if err != nil {
		return err
	}

	parsedResponse, err := protocol.ParseCredentialRequestResponse(r)
	if err != nil {
		return fmt.Errorf("%w: parse credential request response: %w", ErrCeremony, err)
	}
	var found *user
	_, credential, err := h.webAuthn.ValidatePasskeyLogin(
		func(_, userHandle []byte) (webauthn.User, error) {
			u, getErr := h.getUser(ctx, userHandle)
			found = u
			return u, getErr
		},
		session,
		parsedResponse,
	)
	if err != nil {
		return fmt.Errorf("%w: validate passkey login: %w", ErrCeremony, err)
	}

	// Stores the new sign count.
	if err = h.upsertCredential(ctx, found.id, credential); err != nil {
		return fmt.Errorf("upsert webauthn credential: %w", err)
	}
	return h.login(ctx, found.id)
}

func (h *WebAuthnHandler) login(ctx context.Context, userID string) error {
	if err := h.sessionManager.RenewToken(ctx); err != nil {
		return fmt.Errorf("renew session token: %w", err)
	}
	h.sessionManager.Put(ctx, string(userIDSessionKey), userID)
	return nil
}

// Logout forgets the logged-in user. The passkey stays registered.
func (h *WebAuthnHandler) Logout(ctx context.Context) error {
	if err := h.sessionManager.RenewToken(ctx); err != nil {
		return fmt.Errorf("renew session token: %w", err)
	}
	h.sessionManager.Remove(ctx, string(userIDSessionKey))
	return nil
}
