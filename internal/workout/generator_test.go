package workout_test

import (
	"errors"
	"testing"

	"github.com/myrjola/liftplan/internal/workout"
)

func TestGenerator_Generate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := t.Context()

	byID := make(map[string]workout.Exercise)
	for _, name := range []string{"Bench Press", "Dumbbell Press", "Floor Press"} {
		e := f.createExercise(t, name, workout.MuscleGroupChest, workout.ExerciseTypePrimary, workout.WeightTypeAdditional)
		byID[e.ID] = e
	}
	for _, name := range []string{"Cable Fly", "Pec Deck"} {
		e := f.createExercise(t, name, workout.MuscleGroupChest, workout.ExerciseTypeIsolation, workout.WeightTypeAdditional)
		byID[e.ID] = e
	}
	pullUp := f.createExercise(t, "Pull-up", workout.MuscleGroupBack, workout.ExerciseTypePrimary, workout.WeightTypeAssisted)
	byID[pullUp.ID] = pullUp
	f.insertLog(t, pullUp.ID, f.clock.Now().AddDate(0, 0, -3), new(20.0), true)

	candidates, err := f.generator.Generate(ctx, userID, []workout.GroupQuota{
		quota(workout.MuscleGroupChest, 2, 1, 5),
		quota(workout.MuscleGroupBack, 3, 0, 0),
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	wantTypes := []struct {
		group        workout.MuscleGroup
		exerciseType workout.ExerciseType
	}{
		{workout.MuscleGroupChest, workout.ExerciseTypePrimary},
		{workout.MuscleGroupChest, workout.ExerciseTypePrimary},
		{workout.MuscleGroupChest, workout.ExerciseTypeIsolation},
		{workout.MuscleGroupChest, workout.ExerciseTypeIsolation},
		{workout.MuscleGroupBack, workout.ExerciseTypePrimary},
	}
	if len(candidates) != len(wantTypes) {
		t.Fatalf("Generate() returned %d candidates, want %d", len(candidates), len(wantTypes))
	}
	seen := make(map[string]bool)
	for i, c := range candidates {
		e := byID[c.ExerciseID]
		if e.MuscleGroup != wantTypes[i].group || e.ExerciseType != wantTypes[i].exerciseType {
			t.Errorf("candidate %d is %s/%s, want %s/%s",
				i, e.MuscleGroup, e.ExerciseType, wantTypes[i].group, wantTypes[i].exerciseType)
		}
		if seen[c.ExerciseID] {
			t.Errorf("exercise %s selected twice", e.Name)
		}
		seen[c.ExerciseID] = true
		if c.OrderIndex != i {
			t.Errorf("candidate %d OrderIndex = %d", i, c.OrderIndex)
		}
		if c.SetsPlanned != workout.DefaultSets {
			t.Errorf("candidate %d SetsPlanned = %d, want %d", i, c.SetsPlanned, workout.DefaultSets)
		}
		if c.WorkoutID != "" {
			t.Errorf("candidate %d WorkoutID = %q, want empty", i, c.WorkoutID)
		}
	}
	last := candidates[len(candidates)-1]
	if last.WeightSuggested == nil || *last.WeightSuggested != 22.5 {
		t.Errorf("pull-up WeightSuggested = %v, want 22.5", last.WeightSuggested)
	}
	if candidates[0].WeightSuggested != nil {
		t.Errorf("WeightSuggested without history = %v, want nil", *candidates[0].WeightSuggested)
	}
}

func TestGenerator_GenerateEdgeCases(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := t.Context()
	for _, name := range []string{"Squat", "Deadlift", "Lunge"} {
		f.createExercise(t, name, workout.MuscleGroupLegs, workout.ExerciseTypePrimary, workout.WeightTypeAdditional)
	}

	t.Run("repeated group never repeats an exercise", func(t *testing.T) {
		candidates, err := f.generator.Generate(ctx, userID, []workout.GroupQuota{
			quota(workout.MuscleGroupLegs, 2, 0, 0),
			quota(workout.MuscleGroupLegs, 2, 0, 0),
		})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if len(candidates) != 3 {
			t.Fatalf("Generate() returned %d candidates, want 3", len(candidates))
		}
		seen := make(map[string]bool)
		for _, c := range candidates {
			if seen[c.ExerciseID] {
				t.Errorf("exercise %s selected twice", c.ExerciseID)
			}
			seen[c.ExerciseID] = true
		}
	})

	t.Run("empty and negative quotas", func(t *testing.T) {
		candidates, err := f.generator.Generate(ctx, userID, []workout.GroupQuota{
			quota(workout.MuscleGroupLegs, -1, 0, 0),
			quota(workout.MuscleGroupChest, 2, 2, 2),
		})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if len(candidates) != 0 {
			t.Errorf("Generate() returned %d candidates, want 0", len(candidates))
		}
	})

	t.Run("unknown muscle group", func(t *testing.T) {
		_, err := f.generator.Generate(ctx, userID, []workout.GroupQuota{quota("neck", 1, 0, 0)})
		var validationErr *workout.ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("Generate() error = %v, want ValidationError", err)
		}
	})

	t.Run("catalog of other users is ignored", func(t *testing.T) {
		candidates, err := f.generator.Generate(ctx, "user-2", []workout.GroupQuota{quota(workout.MuscleGroupLegs, 3, 0, 0)})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if len(candidates) != 0 {
			t.Errorf("Generate() returned %d candidates, want 0", len(candidates))
		}
	})
}

func TestGenerator_Replace(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := t.Context()
	for _, name := range []string{"Overhead Press", "Push Press", "Arnold Press"} {
		f.createExercise(t, name, workout.MuscleGroupShoulders, workout.ExerciseTypePrimary, workout.WeightTypeAdditional)
	}
	f.createExercise(t, "Lateral Raise", workout.MuscleGroupShoulders, workout.ExerciseTypeIsolation, workout.WeightTypeAdditional)

	candidates, err := f.generator.Generate(ctx, userID, []workout.GroupQuota{quota(workout.MuscleGroupShoulders, 2, 0, 1)})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("Generate() returned %d candidates, want 3", len(candidates))
	}
	candidates[0].SetsPlanned = 7
	original := candidates[0]

	replaced, err := f.generator.Replace(ctx, userID, candidates, original.ID)
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if candidates[0].ExerciseID != original.ExerciseID {
		t.Errorf("Replace() modified its input")
	}
	got := replaced[0]
	if got.ExerciseID == original.ExerciseID || got.ExerciseID == candidates[1].ExerciseID {
		t.Errorf("Replace() picked an exercise already in the workout: %s", got.ExerciseID)
	}
	if got.Exercise == nil || got.Exercise.ExerciseType != workout.ExerciseTypePrimary {
		t.Errorf("Replace() picked %+v, want a primary shoulder exercise", got.Exercise)
	}
	if got.ID != original.ID || got.OrderIndex != original.OrderIndex || got.SetsPlanned != 7 {
		t.Errorf("Replace() = %+v, want id, order index and planned sets of %+v", got, original)
	}
	for i := 1; i < len(candidates); i++ {
		if replaced[i].ExerciseID != candidates[i].ExerciseID {
			t.Errorf("Replace() changed candidate %d", i)
		}
	}

	if _, err = f.generator.Replace(ctx, userID, replaced, replaced[2].ID); !errors.Is(err, workout.ErrNoAlternatives) {
		t.Errorf("Replace() of the only isolation exercise error = %v, want ErrNoAlternatives", err)
	}
	if _, err = f.generator.Replace(ctx, userID, replaced, "missing"); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("Replace() of unknown candidate error = %v, want ErrNotFound", err)
	}
}

func TestGenerator_Commit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := t.Context()
	for _, name := range []string{"Curl", "Hammer Curl", "Chin-up"} {
		f.createExercise(t, name, workout.MuscleGroupBiceps, workout.ExerciseTypeAuxiliary, workout.WeightTypeAdditional)
	}
	f.createExercise(t, "Dip", workout.MuscleGroupTriceps, workout.ExerciseTypePrimary, workout.WeightTypeAdditional)

	committed := f.commit(t,
		quota(workout.MuscleGroupBiceps, 0, 3, 0),
		quota(workout.MuscleGroupTriceps, 1, 0, 0),
	)
	if committed.Name != "Workout 2025-03-10" {
		t.Errorf("Name = %q", committed.Name)
	}
	if committed.StartTime != nil || committed.CompletedAt != nil {
		t.Errorf("committed workout already started or completed: %+v", committed)
	}

	detail, err := f.history.Detail(ctx, userID, committed.ID)
	if err != nil {
		t.Fatalf("Detail() error = %v", err)
	}
	if len(detail.Workout.Exercises) != 4 {
		t.Fatalf("stored %d workout exercises, want 4", len(detail.Workout.Exercises))
	}
	for i, we := range detail.Workout.Exercises {
		if we.OrderIndex != i {
			t.Errorf("exercise %d OrderIndex = %d", i, we.OrderIndex)
		}
		if we.WorkoutID != committed.ID {
			t.Errorf("exercise %d WorkoutID = %q, want %q", i, we.WorkoutID, committed.ID)
		}
		if we.Exercise == nil {
			t.Errorf("exercise %d not resolved", i)
		}
	}
	groups := detail.Workout.MuscleGroups
	if len(groups) != 2 || groups[0] != workout.MuscleGroupBiceps || groups[1] != workout.MuscleGroupTriceps {
		t.Errorf("MuscleGroups = %v", groups)
	}

	t.Run("empty plan", func(t *testing.T) {
		_, err := f.generator.Commit(ctx, userID, nil, []workout.MuscleGroup{workout.MuscleGroupChest})
		var validationErr *workout.ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("Commit() error = %v, want ValidationError", err)
		}
	})
}

func TestGenerator_CommitOrderIndexes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		orderIndexes []int
		// want lists the positions of the candidates in the stored workout.
		want []int
	}{
		{name: "dense", orderIndexes: []int{0, 1}, want: []int{0, 1}},
		{name: "gapped", orderIndexes: []int{3, 9}, want: []int{0, 1}},
		{name: "reversed", orderIndexes: []int{1, 0}, want: []int{1, 0}},
		{name: "duplicate", orderIndexes: []int{0, 0}, want: []int{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			ctx := t.Context()
			exercises := []workout.Exercise{
				f.createExercise(t, "Curl", workout.MuscleGroupBiceps, workout.ExerciseTypeIsolation, workout.WeightTypeAdditional),
				f.createExercise(t, "Dip", workout.MuscleGroupTriceps, workout.ExerciseTypePrimary, workout.WeightTypeAdditional),
			}
			candidates := make([]workout.WorkoutExercise, len(exercises))
			for i, e := range exercises {
				candidates[i] = workout.WorkoutExercise{
					ID:              "",
					WorkoutID:       "",
					ExerciseID:      e.ID,
					OrderIndex:      tt.orderIndexes[i],
					SetsPlanned:     3,
					WeightSuggested: nil,
					Exercise:        nil,
				}
			}

			committed, err := f.generator.Commit(ctx, userID, candidates, nil)
			if err != nil {
				t.Fatalf("Commit() error = %v", err)
			}
			detail, err := f.history.Detail(ctx, userID, committed.ID)
			if err != nil {
				t.Fatalf("Detail() error = %v", err)
			}
			stored := detail.Workout.Exercises
			if len(stored) != len(exercises) {
				t.Fatalf("stored %d workout exercises, want %d", len(stored), len(exercises))
			}
			for i, we := range stored {
				if we.OrderIndex != i {
					t.Errorf("exercise %d OrderIndex = %d, want %d", i, we.OrderIndex, i)
				}
			}
			for candidate, position := range tt.want {
				if got := stored[position].ExerciseID; got != exercises[candidate].ID {
					t.Errorf("position %d holds %s, want %s", position, got, exercises[candidate].Name)
				}
				if got := committed.Exercises[position].ExerciseID; got != exercises[candidate].ID {
					t.Errorf("returned position %d holds %s, want %s", position, got, exercises[candidate].Name)
				}
			}
		})
	}
}

func TestGenerator_CommitRequiresOwnExercises(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := t.Context()
	own := f.createExercise(t, "Curl", workout.MuscleGroupBiceps, workout.ExerciseTypeIsolation, workout.WeightTypeAdditional)
	foreign, err := f.catalog.Create(ctx, "user-2", workout.ExerciseFields{
		Name:              "Dip",
		MuscleGroup:       workout.MuscleGroupTriceps,
		WeightType:        workout.WeightTypeAdditional,
		ExerciseType:      workout.ExerciseTypePrimary,
		Technique:         "Lock out at the top.",
		EquipmentName:     "",
		EquipmentSettings: "",
		DefaultSets:       0,
		DefaultReps:       0,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	candidates := []workout.WorkoutExercise{
		{ID: "", WorkoutID: "", ExerciseID: own.ID, OrderIndex: 0, SetsPlanned: 3, WeightSuggested: nil, Exercise: nil},
		{ID: "", WorkoutID: "", ExerciseID: foreign.ID, OrderIndex: 1, SetsPlanned: 3, WeightSuggested: nil, Exercise: nil},
	}
	_, err = f.generator.Commit(ctx, userID, candidates, nil)
	if !errors.Is(err, workout.ErrNotFound) {
		t.Fatalf("Commit() of another user's exercise error = %v, want ErrNotFound", err)
	}
	var storageErr *workout.StorageError
	if errors.As(err, &storageErr) {
		t.Errorf("Commit() error = %v, want no StorageError", err)
	}
	if _, err = f.engine.StartOrResume(ctx, userID); !errors.Is(err, workout.ErrNoActiveWorkout) {
		t.Errorf("StartOrResume() error = %v, want ErrNoActiveWorkout after rejected commit", err)
	}

	committed, err := f.generator.Commit(ctx, userID, candidates[:1], nil)
	if err != nil {
		t.Fatalf("Commit() of own exercise error = %v", err)
	}
	if committed.Exercises[0].Exercise == nil || committed.Exercises[0].Exercise.ID != own.ID {
		t.Errorf("committed exercise not resolved: %+v", committed.Exercises[0])
	}
}
