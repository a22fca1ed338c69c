package workout

import (
	"context"
	"fmt"

	"github.com/myrjola/liftplan/internal/tablestore"
)

func settingsFromRecord(rec tablestore.Record) UserSettings {
	return UserSettings{
		ID:         rec.String("id"),
		UserID:     rec.String("user_id"),
		BodyWeight: rec.Float("body_weight"),
		CreatedAt:  rec.Time("created_at"),
		UpdatedAt:  rec.Time("updated_at"),
	}
}

// findSettings returns the stored settings of the user or nil.
func findSettings(ctx context.Context, store tablestore.Store, userID string) (*UserSettings, error) {
	records, err := store.Find(ctx, tableUserSettings, tablestore.Query{
		Where:      []tablestore.Condition{tablestore.Eq("user_id", userID)},
		OrderBy:    "",
		Descending: false,
		Limit:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("find settings: %w", err)
	}
	rec := firstRecord(records)
	if rec == nil {
		return nil, nil //nolint:nilnil // settings are created lazily.
	}
	settings := settingsFromRecord(rec)
	return &settings, nil
}
