package webauthnhandler

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-webauthn/webauthn/webauthn"
)

func (h *WebAuthnHandler) upsertUser(ctx context.Context, u *user) error {
	stmt := `INSERT INTO users (id, display_name)
VALUES (:id, :display_name)
ON CONFLICT (id) DO UPDATE SET display_name = :display_name`
	if _, err := h.database.ReadWrite.ExecContext(ctx, stmt,
		sql.Named("id", u.id), sql.Named("display_name", u.displayName)); err != nil {
		return fmt.Errorf("db upsert user %s: %w", u.id, err)
	}
	return nil
}

// getUser loads the user and its credentials by user handle.
func (h *WebAuthnHandler) getUser(ctx context.Context, handle []byte) (_ *user, err error) {
	u := user{id: "", displayName: "", credentials: nil}
	if err = h.database.ReadOnly.QueryRowContext(ctx, `SELECT id, display_name FROM users WHERE id = ?`,
		string(handle)).Scan(&u.id, &u.displayName); err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}

	rows, err := h.database.ReadOnly.QueryContext(ctx, `SELECT id,
       public_key,
       attestation_type,
       transport,
       flag_user_present,
       flag_user_verified,
       flag_backup_eligible,
       flag_backup_state,
       authenticator_aaguid,
       authenticator_sign_count,
       authenticator_clone_warning,
       authenticator_attachment
FROM credentials
WHERE user_id = ?`, u.id)
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	for rows.Next() {
		var (
			credential webauthn.Credential
			transport  []byte
		)
		if err = rows.Scan(
			&credential.ID,
			&credential.PublicKey,
			&credential.AttestationType,
			&transport,
			&credential.Flags.UserPresent,
			&credential.Flags.UserVerified,
			&credential.Flags.BackupEligible,
			&credential.Flags.BackupState,
			&credential.Authenticator.AAGUID,
			&credential.Authenticator.SignCount,
			&credential.Authenticator.CloneWarning,
			&credential.Authenticator.Attachment,
		); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		if err = json.Unmarshal(transport, &credential.Transport); err != nil {
			return nil, fmt.Errorf("JSON decode transport: %w", err)
		}
		u.credentials = append(u.credentials, credential)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("check rows error: %w", err)
	}
	return &u, nil
}

// userExists reports whether the user has been registered. Users are created when registration begins so a user
// without credentials does not count.
func (h *WebAuthnHandler) userExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := h.database.ReadOnly.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM credentials WHERE user_id = ?)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query user: %w", err)
	}
	return exists, nil
}

func (h *WebAuthnHandler) upsertCredential(ctx context.Context, userID string, credential *webauthn.Credential) error {
	encodedTransport, err := json.Marshal(credential.Transport)
	if err != nil {
		return fmt.Errorf("JSON encode transport: %w", err)
	}
	stmt := `INSERT INTO credentials (id,
                         user_id,
                         public_key,
                         attestation_type,
                         transport,
                         flag_user_present,
                         flag_user_verified,
                         flag_backup_eligible,
                         flag_backup_state,
                         authenticator_aaguid,
                         authenticator_sign_count,
                         authenticator_clone_warning,
                         authenticator_attachment)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET attestation_type            = EXCLUDED.attestation_type,
                               transport                   = EXCLUDED.transport,
                               flag_user_present           = EXCLUDED.flag_user_present,
                               flag_user_verified          = EXCLUDED.flag_user_verified,
                               flag_backup_eligible        = EXCLUDED.flag_backup_eligible,
                               flag_backup_state           = EXCLUDED.flag_backup_state,
                               authenticator_aaguid        = EXCLUDED.authenticator_aaguid,
                               authenticator_sign_count    = EXCLUDED.authenticator_sign_count,
                               authenticator_clone_warning = EXCLUDED.authenticator_clone_warning,
                               authenticator_attachment    = EXCLUDED.authenticator_attachment,
                               updated                     = STRFTIME('%Y-%m-%dT%H:%M:%fZ')`
	if _, err = h.database.ReadWrite.ExecContext(
		ctx,
		stmt,
		credential.ID,
		userID,
		credential.PublicKey,
		credential.AttestationType,
		string(encodedTransport),
		credential.Flags.UserPresent,
		credential.Flags.UserVerified,
		credential.Flags.BackupEligible,
		credential.Flags.BackupState,
		credential.Authenticator.AAGUID,
		credential.Authenticator.SignCount,
		credential.Authenticator.CloneWarning,
		string(credential.Authenticator.Attachment),
	); err != nil {
		return fmt.Errorf("db upsert credential (user_id: %s, credential_id: %s): %w",
			userID,
			hex.EncodeToString(credential.ID),
			err)
	}
	return nil
}
