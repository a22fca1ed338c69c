package workout

import (
	"context"
	"fmt"

	"github.com/myrjola/liftplan/internal/tablestore"
)

func exerciseFromRecord(rec tablestore.Record) Exercise {
	return Exercise{
		ID:                rec.String("id"),
		UserID:            rec.String("user_id"),
		Name:              rec.String("name"),
		MuscleGroup:       MuscleGroup(rec.String("muscle_group")),
		WeightType:        WeightType(rec.String("weight_type")),
		ExerciseType:      ExerciseType(rec.String("exercise_type")),
		Technique:         rec.String("technique"),
		EquipmentName:     rec.String("equipment_name"),
		EquipmentSettings: rec.String("equipment_settings"),
		EquipmentPhotoKey: rec.String("equipment_photo_key"),
		DefaultSets:       rec.Int("default_sets"),
		DefaultReps:       rec.Int("default_reps"),
		CreatedAt:         rec.Time("created_at"),
		UpdatedAt:         rec.Time("updated_at"),
	}
}

func exerciseRecord(e Exercise) tablestore.Record {
	return tablestore.Record{
		"id":                  e.ID,
		"user_id":             e.UserID,
		"name":                e.Name,
		"muscle_group":        string(e.MuscleGroup),
		"weight_type":         string(e.WeightType),
		"exercise_type":       string(e.ExerciseType),
		"technique":           e.Technique,
		"equipment_name":      nullString(e.EquipmentName),
		"equipment_settings":  nullString(e.EquipmentSettings),
		"equipment_photo_key": nullString(e.EquipmentPhotoKey),
		"default_sets":        e.DefaultSets,
		"default_reps":        e.DefaultReps,
		"created_at":          e.CreatedAt,
		"updated_at":          e.UpdatedAt,
	}
}

// findExercise returns the exercise or nil if the user owns no exercise with the id.
func findExercise(ctx context.Context, store tablestore.Store, userID string, id string) (*Exercise, error) {
	records, err := store.Find(ctx, tableExercises, tablestore.Query{
		Where:      []tablestore.Condition{tablestore.Eq("id", id), tablestore.Eq("user_id", userID)},
		OrderBy:    "",
		Descending: false,
		Limit:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("find exercise %s: %w", id, err)
	}
	rec := firstRecord(records)
	if rec == nil {
		return nil, nil //nolint:nilnil // absence is not an error for lazy references.
	}
	exercise := exerciseFromRecord(rec)
	return &exercise, nil
}

// listExercises returns the user's exercises, newest first.
func listExercises(ctx context.Context, store tablestore.Store, userID string) ([]Exercise, error) {
	records, err := store.Find(ctx, tableExercises, tablestore.Query{
		Where:      []tablestore.Condition{tablestore.Eq("user_id", userID)},
		OrderBy:    "created_at",
		Descending: true,
		Limit:      0,
	})
	if err != nil {
		return nil, fmt.Errorf("find exercises: %w", err)
	}
	exercises := make([]Exercise, 0, len(records))
	for _, rec := range records {
		exercises = append(exercises, exerciseFromRecord(rec))
	}
	return exercises, nil
}
