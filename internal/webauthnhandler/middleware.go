package webauthnhandler

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/myrjola/liftplan/internal/contexthelpers"
	"github.com/myrjola/liftplan/internal/logging"
)

// AuthenticateMiddleware marks the request context as authenticated when the session belongs to a registered user.
// Anonymous requests pass through unchanged.
func (h *WebAuthnHandler) AuthenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := h.sessionManager.GetString(ctx, string(userIDSessionKey))
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		exists, err := h.userExists(ctx, userID)
		if err != nil {
			h.logger.LogAttrs(ctx, slog.LevelError, "unable to fetch user", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if !exists {
			next.ServeHTTP(w, r)
			return
		}

		// Hash token with sha256 to avoid leaking it in logs.
		tokenHash := sha256.Sum256([]byte(h.sessionManager.Token(ctx)))
		r = contexthelpers.AuthenticateContext(r, userID)
		r = r.WithContext(logging.WithAttrs(r.Context(),
			slog.String("session_hash", hex.EncodeToString(tokenHash[:])),
			slog.String("user_id", userID),
		))

		next.ServeHTTP(w, r)
	})
}
