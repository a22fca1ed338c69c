package workout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/liftplan/internal/tablestore"
)

// Catalog holds the user-authored exercise definitions.
type Catalog struct {
	store tablestore.Store
	now   func() time.Time
}

func NewCatalog(store tablestore.Store, now func() time.Time) *Catalog {
	return &Catalog{store: store, now: now}
}

// List returns the user's exercises, newest first.
func (c *Catalog) List(ctx context.Context, userID string) ([]Exercise, error) {
	exercises, err := listExercises(ctx, c.store, userID)
	if err != nil {
		return nil, storageError("list exercises", err)
	}
	return exercises, nil
}

// Get returns the exercise or ErrNotFound if the user owns no exercise with the id.
func (c *Catalog) Get(ctx context.Context, userID string, id string) (Exercise, error) {
	exercise, err := findExercise(ctx, c.store, userID, id)
	if err != nil {
		return Exercise{}, storageError("get exercise", err)
	}
	if exercise == nil {
		return Exercise{}, fmt.Errorf("exercise %s: %w", id, ErrNotFound)
	}
	return *exercise, nil
}

// validateExerciseFields normalises fields in place. Zero default sets and reps take the defaults.
func validateExerciseFields(fields *ExerciseFields) error {
	fields.Name = strings.TrimSpace(fields.Name)
	fields.Technique = strings.TrimSpace(fields.Technique)
	fields.EquipmentName = strings.TrimSpace(fields.EquipmentName)
	fields.EquipmentSettings = strings.TrimSpace(fields.EquipmentSettings)

	switch {
	case fields.Name == "":
		return &ValidationError{Field: "name", Reason: "required"}
	case fields.MuscleGroup == "":
		return &ValidationError{Field: "muscle_group", Reason: "required"}
	case !fields.MuscleGroup.Valid():
		return &ValidationError{Field: "muscle_group", Reason: fmt.Sprintf("unknown muscle group %q", fields.MuscleGroup)}
	case fields.Technique == "":
		return &ValidationError{Field: "technique", Reason: "required"}
	case fields.WeightType == "":
		return &ValidationError{Field: "weight_type", Reason: "required"}
	case !fields.WeightType.Valid():
		return &ValidationError{Field: "weight_type", Reason: fmt.Sprintf("unknown weight type %q", fields.WeightType)}
	case fields.ExerciseType == "":
		return &ValidationError{Field: "exercise_type", Reason: "required"}
	case !fields.ExerciseType.Valid():
		return &ValidationError{Field: "exercise_type", Reason: fmt.Sprintf("unknown exercise type %q", fields.ExerciseType)}
	case fields.DefaultSets < 0:
		return &ValidationError{Field: "default_sets", Reason: "must be positive"}
	case fields.DefaultReps < 0:
		return &ValidationError{Field: "default_reps", Reason: "must be positive"}
	}
	if fields.DefaultSets == 0 {
		fields.DefaultSets = DefaultSets
	}
	if fields.DefaultReps == 0 {
		fields.DefaultReps = DefaultReps
	}
	return nil
}

func (e *Exercise) apply(fields ExerciseFields) {
	e.Name = fields.Name
	e.MuscleGroup = fields.MuscleGroup
	e.WeightType = fields.WeightType
	e.ExerciseType = fields.ExerciseType
	e.Technique = fields.Technique
	e.EquipmentName = fields.EquipmentName
	e.EquipmentSettings = fields.EquipmentSettings
	e.DefaultSets = fields.DefaultSets
	e.DefaultReps = fields.DefaultReps
}

// Create validates fields and stores a new exercise with equal created and updated timestamps.
func (c *Catalog) Create(ctx context.Context, userID string, fields ExerciseFields) (Exercise, error) {
	if err := validateExerciseFields(&fields); err != nil {
		return Exercise{}, err
	}
	now := c.now().UTC()
	exercise := Exercise{ //nolint:exhaustruct // fields applied below.
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	exercise.apply(fields)
	if err := c.store.Insert(ctx, tableExercises, exerciseRecord(exercise)); err != nil {
		return Exercise{}, storageError("create exercise", err)
	}
	return exercise, nil
}

// Update validates fields and overwrites the editable attributes of the user's exercise.
func (c *Catalog) Update(ctx context.Context, userID string, id string, fields ExerciseFields) (Exercise, error) {
	if err := validateExerciseFields(&fields); err != nil {
		return Exercise{}, err
	}
	var updated Exercise
	err := c.store.InTx(ctx, func(ctx context.Context, tx tablestore.Store) error {
		exercise, err := findExercise(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if exercise == nil {
			return fmt.Errorf("exercise %s: %w", id, ErrNotFound)
		}
		exercise.apply(fields)
		exercise.UpdatedAt = c.now().UTC()
		if err = tx.Update(ctx, tableExercises, id, tablestore.Record{
			"name":               exercise.Name,
			"muscle_group":       string(exercise.MuscleGroup),
			"weight_type":        string(exercise.WeightType),
			"exercise_type":      string(exercise.ExerciseType),
			"technique":          exercise.Technique,
			"equipment_name":     nullString(exercise.EquipmentName),
			"equipment_settings": nullString(exercise.EquipmentSettings),
			"default_sets":       exercise.DefaultSets,
			"default_reps":       exercise.DefaultReps,
			"updated_at":         exercise.UpdatedAt,
		}); err != nil {
			return fmt.Errorf("update exercise: %w", err)
		}
		updated = *exercise
		return nil
	})
	if err != nil {
		return Exercise{}, storageError("update exercise", err)
	}
	return updated, nil
}

// SetPhotoKey stores the object key of the equipment photo. An empty key removes the reference.
func (c *Catalog) SetPhotoKey(ctx context.Context, userID string, id string, key string) (Exercise, error) {
	var updated Exercise
	err := c.store.InTx(ctx, func(ctx context.Context, tx tablestore.Store) error {
		exercise, err := findExercise(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if exercise == nil {
			return fmt.Errorf("exercise %s: %w", id, ErrNotFound)
		}
		exercise.EquipmentPhotoKey = key
		exercise.UpdatedAt = c.now().UTC()
		if err = tx.Update(ctx, tableExercises, id, tablestore.Record{
			"equipment_photo_key": nullString(key),
			"updated_at":          exercise.UpdatedAt,
		}); err != nil {
			return fmt.Errorf("update photo key: %w", err)
		}
		updated = *exercise
		return nil
	})
	if err != nil {
		return Exercise{}, storageError("set photo key", err)
	}
	return updated, nil
}

// Delete removes the user's exercise and returns it. Workouts and logs referencing it are left dangling.
func (c *Catalog) Delete(ctx context.Context, userID string, id string) (Exercise, error) {
	var deleted Exercise
	err := c.store.InTx(ctx, func(ctx context.Context, tx tablestore.Store) error {
		exercise, err := findExercise(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if exercise == nil {
			return fmt.Errorf("exercise %s: %w", id, ErrNotFound)
		}
		if err = tx.Delete(ctx, tableExercises, id); err != nil {
			if errors.Is(err, tablestore.ErrNoRecord) {
				return fmt.Errorf("exercise %s: %w", id, ErrNotFound)
			}
			return fmt.Errorf("delete exercise: %w", err)
		}
		deleted = *exercise
		return nil
	})
	if err != nil {
		return Exercise{}, storageError("delete exercise", err)
	}
	return deleted, nil
}
