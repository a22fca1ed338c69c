package workout_test

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/myrjola/liftplan/internal/sqlite"
	"github.com/myrjola/liftplan/internal/tablestore"
	"github.com/myrjola/liftplan/internal/testhelpers"
	"github.com/myrjola/liftplan/internal/workout"
)

const userID = "user-1"

type fixture struct {
	store     tablestore.Store
	logger    *slog.Logger
	clock     *testhelpers.Clock
	catalog   *workout.Catalog
	oracle    *workout.Oracle
	generator *workout.Generator
	engine    *workout.Engine
	settings  *workout.Settings
	history   *workout.History
}

func newStore(t *testing.T, logger *slog.Logger) tablestore.Store {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	db, err := sqlite.NewDatabase(ctx, ":memory:", logger)
	if err != nil {
		cancel()
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		if err = db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db.Store()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	return newFixtureWithStore(t, newStore(t, logger), logger)
}

func newFixtureWithStore(t *testing.T, store tablestore.Store, logger *slog.Logger) *fixture {
	t.Helper()
	clock := testhelpers.NewClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	oracle := workout.NewOracle(store)
	return &fixture{
		store:     store,
		logger:    logger,
		clock:     clock,
		catalog:   workout.NewCatalog(store, clock.Now),
		oracle:    oracle,
		generator: workout.NewGenerator(store, oracle, rand.New(rand.NewPCG(1, 2)), clock.Now),
		engine:    workout.NewEngine(store, logger, clock.Now),
		settings:  workout.NewSettings(store, clock.Now),
		history:   workout.NewHistory(store, logger),
	}
}

func (f *fixture) createExercise(
	t *testing.T,
	name string,
	group workout.MuscleGroup,
	exerciseType workout.ExerciseType,
	weightType workout.WeightType,
) workout.Exercise {
	t.Helper()
	exercise, err := f.catalog.Create(t.Context(), userID, workout.ExerciseFields{
		Name:              name,
		MuscleGroup:       group,
		WeightType:        weightType,
		ExerciseType:      exerciseType,
		Technique:         "Keep the **core** tight.",
		EquipmentName:     "",
		EquipmentSettings: "",
		DefaultSets:       0,
		DefaultReps:       0,
	})
	if err != nil {
		t.Fatalf("Create(%s) error = %v", name, err)
	}
	return exercise
}

// commit generates and commits a workout of the given quotas.
func (f *fixture) commit(t *testing.T, quotas ...workout.GroupQuota) workout.Workout {
	t.Helper()
	candidates, err := f.generator.Generate(t.Context(), userID, quotas)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	groups := make([]workout.MuscleGroup, 0, len(quotas))
	for _, q := range quotas {
		groups = append(groups, q.MuscleGroup)
	}
	w, err := f.generator.Commit(t.Context(), userID, candidates, groups)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	return w
}

func (f *fixture) logs(t *testing.T, exerciseID string) []tablestore.Record {
	t.Helper()
	records, err := f.store.Find(t.Context(), "exercise_logs", tablestore.Query{
		Where:      []tablestore.Condition{tablestore.Eq("exercise_id", exerciseID)},
		OrderBy:    "created_at",
		Descending: false,
		Limit:      0,
	})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	return records
}

func (f *fixture) insertLog(
	t *testing.T,
	exerciseID string,
	createdAt time.Time,
	weightUsed *float64,
	weightAchieved bool,
) {
	t.Helper()
	achieved := 0
	if weightAchieved {
		achieved = 1
	}
	if err := f.store.Insert(t.Context(), "exercise_logs", tablestore.Record{
		"id":              createdAt.Format(time.RFC3339Nano) + exerciseID,
		"user_id":         userID,
		"exercise_id":     exerciseID,
		"weight_used":     weightUsed,
		"sets_completed":  3,
		"sets_planned":    3,
		"reps_completed":  30,
		"reps_planned":    30,
		"completed":       1,
		"weight_achieved": achieved,
		"workout_date":    createdAt.Format(time.DateOnly),
		"created_at":      createdAt,
	}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
}

func quota(group workout.MuscleGroup, primary, auxiliary, isolation int) workout.GroupQuota {
	return workout.GroupQuota{MuscleGroup: group, Primary: primary, Auxiliary: auxiliary, Isolation: isolation}
}
