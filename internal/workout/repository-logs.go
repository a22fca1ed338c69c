package workout

import (
	"context"
	"fmt"

	"github.com/myrjola/liftplan/internal/tablestore"
)

func logFromRecord(rec tablestore.Record) ExerciseLog {
	return ExerciseLog{
		ID:             rec.String("id"),
		UserID:         rec.String("user_id"),
		ExerciseID:     rec.String("exercise_id"),
		WeightUsed:     rec.NullFloat("weight_used"),
		SetsCompleted:  rec.Int("sets_completed"),
		SetsPlanned:    rec.Int("sets_planned"),
		RepsCompleted:  rec.Int("reps_completed"),
		RepsPlanned:    rec.Int("reps_planned"),
		Completed:      rec.Int("completed") == 1,
		WeightAchieved: rec.Int("weight_achieved") == 1,
		WorkoutDate:    rec.String("workout_date"),
		CreatedAt:      rec.Time("created_at"),
	}
}

// logPatch holds the columns rewritten on every save.
func logPatch(l ExerciseLog) tablestore.Record {
	return tablestore.Record{
		"weight_used":     l.WeightUsed,
		"sets_completed":  l.SetsCompleted,
		"sets_planned":    l.SetsPlanned,
		"reps_completed":  l.RepsCompleted,
		"reps_planned":    l.RepsPlanned,
		"completed":       boolInt(l.Completed),
		"weight_achieved": boolInt(l.WeightAchieved),
	}
}

func logRecord(l ExerciseLog) tablestore.Record {
	rec := logPatch(l)
	rec["id"] = l.ID
	rec["user_id"] = l.UserID
	rec["exercise_id"] = l.ExerciseID
	rec["workout_date"] = l.WorkoutDate
	rec["created_at"] = l.CreatedAt
	return rec
}

// latestLog returns the most recently created log of the exercise or nil if there is none.
func latestLog(ctx context.Context, store tablestore.Store, userID string, exerciseID string) (*ExerciseLog, error) {
	records, err := store.Find(ctx, tableExerciseLogs, tablestore.Query{
		Where:      []tablestore.Condition{tablestore.Eq("user_id", userID), tablestore.Eq("exercise_id", exerciseID)},
		OrderBy:    "created_at",
		Descending: true,
		Limit:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("find latest log: %w", err)
	}
	rec := firstRecord(records)
	if rec == nil {
		return nil, nil //nolint:nilnil // no history yet.
	}
	log := logFromRecord(rec)
	return &log, nil
}

// listLogsForDate returns the user's logs of the given calendar date keyed by exercise id.
func listLogsForDate(ctx context.Context, store tablestore.Store, userID string, date string) (map[string]ExerciseLog, error) {
	records, err := store.Find(ctx, tableExerciseLogs, tablestore.Query{
		Where:      []tablestore.Condition{tablestore.Eq("user_id", userID), tablestore.Eq("workout_date", date)},
		OrderBy:    "",
		Descending: false,
		Limit:      0,
	})
	if err != nil {
		return nil, fmt.Errorf("find logs of %s: %w", date, err)
	}
	logs := make(map[string]ExerciseLog, len(records))
	for _, rec := range records {
		log := logFromRecord(rec)
		logs[log.ExerciseID] = log
	}
	return logs, nil
}

// upsertLog updates the log of (user, exercise, date) if one exists and inserts l otherwise. It returns the
// stored log.
func upsertLog(ctx context.Context, store tablestore.Store, l ExerciseLog) (ExerciseLog, error) {
	var stored ExerciseLog
	err := store.InTx(ctx, func(ctx context.Context, tx tablestore.Store) error {
		records, err := tx.Find(ctx, tableExerciseLogs, tablestore.Query{
			Where: []tablestore.Condition{
				tablestore.Eq("user_id", l.UserID),
				tablestore.Eq("exercise_id", l.ExerciseID),
				tablestore.Eq("workout_date", l.WorkoutDate),
			},
			OrderBy:    "",
			Descending: false,
			Limit:      1,
		})
		if err != nil {
			return fmt.Errorf("find log: %w", err)
		}
		if rec := firstRecord(records); rec != nil {
			existing := logFromRecord(rec)
			l.ID = existing.ID
			l.CreatedAt = existing.CreatedAt
			if err = tx.Update(ctx, tableExerciseLogs, existing.ID, logPatch(l)); err != nil {
				return fmt.Errorf("update log: %w", err)
			}
			stored = l
			return nil
		}
		if err = tx.Insert(ctx, tableExerciseLogs, logRecord(l)); err != nil {
			return fmt.Errorf("insert log: %w", err)
		}
		stored = l
		return nil
	})
	if err != nil {
		return ExerciseLog{}, err //nolint:wrapcheck // callers wrap.
	}
	return stored, nil
}
