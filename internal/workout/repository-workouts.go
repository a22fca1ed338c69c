package workout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/myrjola/liftplan/internal/tablestore"
)

func workoutFromRecord(rec tablestore.Record) (Workout, error) {
	var groups []MuscleGroup
	if raw := rec.String("muscle_groups"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &groups); err != nil {
			return Workout{}, fmt.Errorf("decode muscle groups of workout %s: %w", rec.String("id"), err)
		}
	}
	var totalVolume *int
	if rec["total_volume"] != nil {
		v := rec.Int("total_volume")
		totalVolume = &v
	}
	return Workout{
		ID:                rec.String("id"),
		UserID:            rec.String("user_id"),
		Name:              rec.String("name"),
		MuscleGroups:      groups,
		CreatedAt:         rec.Time("created_at"),
		StartTime:         rec.NullTime("start_time"),
		EndTime:           rec.NullTime("end_time"),
		CompletedAt:       rec.NullTime("completed_at"),
		TotalWeightLifted: rec.NullFloat("total_weight_lifted"),
		TotalVolume:       totalVolume,
		UserWeight:        rec.NullFloat("user_weight"),
		Exercises:         nil,
	}, nil
}

func workoutRecord(w Workout) (tablestore.Record, error) {
	groups := w.MuscleGroups
	if groups == nil {
		groups = []MuscleGroup{}
	}
	encoded, err := json.Marshal(groups)
	if err != nil {
		return nil, fmt.Errorf("encode muscle groups: %w", err)
	}
	return tablestore.Record{
		"id":                  w.ID,
		"user_id":             w.UserID,
		"name":                w.Name,
		"muscle_groups":       string(encoded),
		"created_at":          w.CreatedAt,
		"start_time":          w.StartTime,
		"end_time":            w.EndTime,
		"completed_at":        w.CompletedAt,
		"total_weight_lifted": w.TotalWeightLifted,
		"total_volume":        w.TotalVolume,
		"user_weight":         w.UserWeight,
	}, nil
}

func workoutExerciseFromRecord(rec tablestore.Record) WorkoutExercise {
	return WorkoutExercise{
		ID:              rec.String("id"),
		WorkoutID:       rec.String("workout_id"),
		ExerciseID:      rec.String("exercise_id"),
		OrderIndex:      rec.Int("order_index"),
		SetsPlanned:     rec.Int("sets_planned"),
		WeightSuggested: rec.NullFloat("weight_suggested"),
		Exercise:        nil,
	}
}

func workoutExerciseRecord(we WorkoutExercise) tablestore.Record {
	return tablestore.Record{
		"id":               we.ID,
		"workout_id":       we.WorkoutID,
		"exercise_id":      we.ExerciseID,
		"order_index":      we.OrderIndex,
		"sets_planned":     we.SetsPlanned,
		"weight_suggested": we.WeightSuggested,
	}
}

// findWorkouts returns the user's workouts matching the extra conditions, newest first.
func findWorkouts(
	ctx context.Context,
	store tablestore.Store,
	userID string,
	limit int,
	conditions ...tablestore.Condition,
) ([]Workout, error) {
	records, err := store.Find(ctx, tableWorkouts, tablestore.Query{
		Where:      append([]tablestore.Condition{tablestore.Eq("user_id", userID)}, conditions...),
		OrderBy:    "created_at",
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("find workouts: %w", err)
	}
	workouts := make([]Workout, 0, len(records))
	for _, rec := range records {
		w, decodeErr := workoutFromRecord(rec)
		if decodeErr != nil {
			return nil, decodeErr
		}
		workouts = append(workouts, w)
	}
	return workouts, nil
}

// findWorkout returns the user's workout with the id matching the extra conditions or nil.
func findWorkout(
	ctx context.Context,
	store tablestore.Store,
	userID string,
	id string,
	conditions ...tablestore.Condition,
) (*Workout, error) {
	workouts, err := findWorkouts(ctx, store, userID, 1, append(conditions, tablestore.Eq("id", id))...)
	if err != nil {
		return nil, err
	}
	if len(workouts) == 0 {
		return nil, nil //nolint:nilnil // caller decides whether absence is an error.
	}
	return &workouts[0], nil
}

// listWorkoutExercises returns the exercise slots of a workout in execution order without resolving the exercises.
func listWorkoutExercises(ctx context.Context, store tablestore.Store, workoutID string) ([]WorkoutExercise, error) {
	records, err := store.Find(ctx, tableWorkoutExercises, tablestore.Query{
		Where:      []tablestore.Condition{tablestore.Eq("workout_id", workoutID)},
		OrderBy:    "order_index",
		Descending: false,
		Limit:      0,
	})
	if err != nil {
		return nil, fmt.Errorf("find workout exercises: %w", err)
	}
	slots := make([]WorkoutExercise, 0, len(records))
	for _, rec := range records {
		slots = append(slots, workoutExerciseFromRecord(rec))
	}
	return slots, nil
}
