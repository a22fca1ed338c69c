package workout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/liftplan/internal/tablestore"
)

// historyLimit caps the number of completed workouts listed.
const historyLimit = 50

// Summary aggregates a list of completed workouts.
type Summary struct {
	Workouts          int           `json:"workouts"`
	TotalDuration     time.Duration `json:"total_duration"`
	TotalWeightLifted float64       `json:"total_weight_lifted"`
	TotalVolume       int           `json:"total_volume"`
}

// Summarize adds up the durations and aggregates of workouts. Missing values count as zero.
func Summarize(workouts []Workout) Summary {
	var s Summary
	for _, w := range workouts {
		s.Workouts++
		s.TotalDuration += w.Duration()
		if w.TotalWeightLifted != nil {
			s.TotalWeightLifted += *w.TotalWeightLifted
		}
		if w.TotalVolume != nil {
			s.TotalVolume += *w.TotalVolume
		}
	}
	return s
}

// WorkoutDetail is a completed or planned workout with its exercises and the body weight used for it.
type WorkoutDetail struct {
	Workout    Workout `json:"workout"`
	BodyWeight float64 `json:"body_weight"`
}

// History is the read model over completed workouts.
type History struct {
	store  tablestore.Store
	logger *slog.Logger
}

func NewHistory(store tablestore.Store, logger *slog.Logger) *History {
	return &History{store: store, logger: logger}
}

// List returns the most recent completed workouts, newest first.
func (h *History) List(ctx context.Context, userID string) ([]Workout, error) {
	workouts, err := findWorkouts(ctx, h.store, userID, historyLimit, tablestore.IsNotNull("completed_at"))
	if err != nil {
		return nil, storageError("list history", err)
	}
	return workouts, nil
}

// Detail loads a workout with its exercises. Deleted exercises are left unresolved.
func (h *History) Detail(ctx context.Context, userID string, workoutID string) (WorkoutDetail, error) {
	workout, err := findWorkout(ctx, h.store, userID, workoutID)
	if err != nil {
		return WorkoutDetail{}, storageError("get workout", err)
	}
	if workout == nil {
		return WorkoutDetail{}, fmt.Errorf("workout %s: %w", workoutID, ErrNotFound)
	}
	slots, err := listWorkoutExercises(ctx, h.store, workout.ID)
	if err != nil {
		return WorkoutDetail{}, storageError("get workout", err)
	}
	resolveExercises(ctx, h.store, h.logger, userID, slots)
	workout.Exercises = slots

	bodyWeight := DefaultBodyWeight
	if workout.UserWeight != nil {
		bodyWeight = *workout.UserWeight
	} else if bodyWeight, err = currentBodyWeight(ctx, h.store, userID); err != nil {
		return WorkoutDetail{}, storageError("get workout", err)
	}
	return WorkoutDetail{Workout: *workout, BodyWeight: bodyWeight}, nil
}
