package workout

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/liftplan/internal/tablestore"
)

// Settings manages the per-user profile. The row is created on the first save.
type Settings struct {
	store tablestore.Store
	now   func() time.Time
}

func NewSettings(store tablestore.Store, now func() time.Time) *Settings {
	return &Settings{store: store, now: now}
}

// Get returns the user's settings with the default body weight if none are stored.
func (s *Settings) Get(ctx context.Context, userID string) (UserSettings, error) {
	settings, err := findSettings(ctx, s.store, userID)
	if err != nil {
		return UserSettings{}, storageError("get settings", err)
	}
	if settings == nil {
		return UserSettings{
			ID:         "",
			UserID:     userID,
			BodyWeight: DefaultBodyWeight,
			CreatedAt:  time.Time{},
			UpdatedAt:  time.Time{},
		}, nil
	}
	return *settings, nil
}

// SetBodyWeight stores the body weight in kilograms.
func (s *Settings) SetBodyWeight(ctx context.Context, userID string, bodyWeight float64) (UserSettings, error) {
	if bodyWeight <= 0 || math.IsNaN(bodyWeight) || math.IsInf(bodyWeight, 0) {
		return UserSettings{}, &ValidationError{Field: "body_weight", Reason: "must be a positive number"}
	}
	var stored UserSettings
	err := s.store.InTx(ctx, func(ctx context.Context, tx tablestore.Store) error {
		now := s.now().UTC()
		existing, err := findSettings(ctx, tx, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			if err = tx.Update(ctx, tableUserSettings, existing.ID, tablestore.Record{
				"body_weight": bodyWeight,
				"updated_at":  now,
			}); err != nil {
				return fmt.Errorf("update settings: %w", err)
			}
			stored = *existing
			stored.BodyWeight = bodyWeight
			stored.UpdatedAt = now
			return nil
		}
		stored = UserSettings{
			ID:         uuid.NewString(),
			UserID:     userID,
			BodyWeight: bodyWeight,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err = tx.Insert(ctx, tableUserSettings, tablestore.Record{
			"id":          stored.ID,
			"user_id":     stored.UserID,
			"body_weight": stored.BodyWeight,
			"created_at":  stored.CreatedAt,
			"updated_at":  stored.UpdatedAt,
		}); err != nil {
			return fmt.Errorf("insert settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return UserSettings{}, storageError("save body weight", err)
	}
	return stored, nil
}

// currentBodyWeight returns the stored body weight or DefaultBodyWeight.
func currentBodyWeight(ctx context.Context, store tablestore.Store, userID string) (float64, error) {
	settings, err := findSettings(ctx, store, userID)
	if err != nil {
		return 0, err
	}
	if settings == nil || settings.BodyWeight <= 0 {
		return DefaultBodyWeight, nil
	}
	return settings.BodyWeight, nil
}
