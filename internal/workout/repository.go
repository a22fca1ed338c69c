package workout

import (
	"time"

	"github.com/myrjola/liftplan/internal/tablestore"
)

const (
	tableExercises        = "exercises"
	tableExerciseLogs     = "exercise_logs"
	tableWorkouts         = "workouts"
	tableWorkoutExercises = "workout_exercises"
	tableUserSettings     = "user_settings"
)

// dateFormat is the calendar date format of exercise_logs.workout_date.
const dateFormat = time.DateOnly

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// firstRecord returns the first record or nil.
func firstRecord(records []tablestore.Record) tablestore.Record {
	if len(records) == 0 {
		return nil
	}
	return records[0]
}
