package workout_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/liftplan/internal/tablestore"
	"github.com/myrjola/liftplan/internal/testhelpers"
	"github.com/myrjola/liftplan/internal/workout"
)

func TestEffectiveWeight(t *testing.T) {
	t.Parallel()
	tests := []struct {
		weightType workout.WeightType
		raw        float64
		want       float64
	}{
		{weightType: workout.WeightTypeBodyweight, raw: 15, want: 80},
		{weightType: workout.WeightTypeAdditional, raw: 20, want: 100},
		{weightType: workout.WeightTypeAssisted, raw: 30, want: 50},
		{weightType: workout.WeightTypeAssisted, raw: 90, want: 0},
		{weightType: "machine", raw: 42, want: 42},
	}
	for _, tt := range tests {
		t.Run(string(tt.weightType), func(t *testing.T) {
			t.Parallel()
			exercise := &workout.Exercise{WeightType: tt.weightType} //nolint:exhaustruct // only weight type matters.
			if got := workout.EffectiveWeight(exercise, tt.raw, 80); got != tt.want {
				t.Errorf("EffectiveWeight(%s, %v, 80) = %v, want %v", tt.weightType, tt.raw, got, tt.want)
			}
		})
	}
}

func TestEngine_StartOrResume(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := t.Context()

	if _, err := f.engine.StartOrResume(ctx, userID); !errors.Is(err, workout.ErrNoActiveWorkout) {
		t.Fatalf("StartOrResume() without workout error = %v, want ErrNoActiveWorkout", err)
	}

	row := f.createExercise(t, "Barbell Row", workout.MuscleGroupBack, workout.ExerciseTypePrimary, workout.WeightTypeAdditional)
	f.insertLog(t, row.ID, f.clock.Now().AddDate(0, 0, -2), new(50.0), true)
	if _, err := f.settings.SetBodyWeight(ctx, userID, 82); err != nil {
		t.Fatalf("SetBodyWeight() error = %v", err)
	}
	committed := f.commit(t, quota(workout.MuscleGroupBack, 1, 0, 0))

	f.clock.Advance(time.Hour)
	session, err := f.engine.StartOrResume(ctx, userID)
	if err != nil {
		t.Fatalf("StartOrResume() error = %v", err)
	}
	view := session.View()
	if view.Workout.ID != committed.ID {
		t.Errorf("resumed workout %s, want %s", view.Workout.ID, committed.ID)
	}
	if view.Workout.StartTime == nil || !view.Workout.StartTime.Equal(f.clock.Now()) {
		t.Errorf("StartTime = %v, want %v", view.Workout.StartTime, f.clock.Now())
	}
	if view.BodyWeight != 82 {
		t.Errorf("BodyWeight = %v, want 82", view.BodyWeight)
	}
	wantSets := []workout.SetState{
		{Number: 1, Reps: workout.DefaultReps, Weight: 52.5, Completed: false},
		{Number: 2, Reps: workout.DefaultReps, Weight: 52.5, Completed: false},
		{Number: 3, Reps: workout.DefaultReps, Weight: 52.5, Completed: false},
	}
	if diff := cmp.Diff(wantSets, view.Exercises[0].Sets); diff != "" {
		t.Errorf("initial sets mismatch (-want +got):\n%s", diff)
	}

	// The start time and body weight snapshot are taken once.
	f.clock.Advance(time.Hour)
	if _, err = f.settings.SetBodyWeight(ctx, userID, 90); err != nil {
		t.Fatalf("SetBodyWeight() error = %v", err)
	}
	if err = session.SetWeight(row.ID, 55); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}
	if _, err = session.SaveProgress(ctx, row.ID); err != nil {
		t.Fatalf("SaveProgress() error = %v", err)
	}
	resumed, err := f.engine.StartOrResume(ctx, userID)
	if err != nil {
		t.Fatalf("StartOrResume() error = %v", err)
	}
	resumedView := resumed.View()
	if !resumedView.Workout.StartTime.Equal(*view.Workout.StartTime) {
		t.Errorf("StartTime changed on resume: %v", resumedView.Workout.StartTime)
	}
	if resumedView.BodyWeight != 82 {
		t.Errorf("BodyWeight on resume = %v, want 82", resumedView.BodyWeight)
	}
	if got := resumedView.Exercises[0].Sets[0].Weight; got != 55 {
		t.Errorf("resumed weight = %v, want today's saved weight 55", got)
	}
}

func TestSession_SetMutations(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := t.Context()
	pushUp := f.createExercise(t, "Push-up", workout.MuscleGroupChest, workout.ExerciseTypeAuxiliary, workout.WeightTypeBodyweight)
	f.commit(t, quota(workout.MuscleGroupChest, 0, 1, 0))
	session, err := f.engine.StartOrResume(ctx, userID)
	if err != nil {
		t.Fatalf("StartOrResume() error = %v", err)
	}

	var validationErr *workout.ValidationError
	if err = session.SetWeight(pushUp.ID, -1); !errors.As(err, &validationErr) {
		t.Errorf("SetWeight(-1) error = %v, want ValidationError", err)
	}
	if err = session.SetReps(pushUp.ID, 0, -1); !errors.As(err, &validationErr) {
		t.Errorf("SetReps(-1) error = %v, want ValidationError", err)
	}
	if err = session.ToggleSetCompleted(pushUp.ID, 3); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("ToggleSetCompleted(3) error = %v, want ErrNotFound", err)
	}
	if err = session.ToggleSetCompleted("missing", 0); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("ToggleSetCompleted(missing) error = %v, want ErrNotFound", err)
	}

	if err = session.SetReps(pushUp.ID, 0, 2); err != nil {
		t.Fatalf("SetReps() error = %v", err)
	}
	if err = session.StepReps(pushUp.ID, 0, -5); err != nil {
		t.Fatalf("StepReps() error = %v", err)
	}
	if err = session.StepReps(pushUp.ID, 1, 2); err != nil {
		t.Fatalf("StepReps() error = %v", err)
	}
	sets := session.View().Exercises[0].Sets
	if sets[0].Reps != 1 || sets[1].Reps != 12 {
		t.Errorf("reps = %d, %d, want 1, 12", sets[0].Reps, sets[1].Reps)
	}

	if session.CanMarkWeightAchieved(pushUp.ID) {
		t.Errorf("CanMarkWeightAchieved() without completed sets = true")
	}
	if got := session.ProgressPercent(); got != 0 {
		t.Errorf("ProgressPercent() = %v, want 0", got)
	}
	for i := range 3 {
		if err = session.ToggleSetCompleted(pushUp.ID, i); err != nil {
			t.Fatalf("ToggleSetCompleted(%d) error = %v", i, err)
		}
	}
	if !session.CanMarkWeightAchieved(pushUp.ID) {
		t.Errorf("CanMarkWeightAchieved() with completed sets = false")
	}
	if got := session.ProgressPercent(); got != 100 {
		t.Errorf("ProgressPercent() = %v, want 100", got)
	}
	// Body weight exercises count the default body weight regardless of the entered weight.
	if got := session.Totals(); got.WeightLifted != 70*(1+12+10) || got.Volume != 23 {
		t.Errorf("Totals() = %+v", got)
	}

	if _, err = session.MarkWeightAchieved(ctx, pushUp.ID); err != nil {
		t.Fatalf("MarkWeightAchieved() error = %v", err)
	}
	if session.CanMarkWeightAchieved(pushUp.ID) {
		t.Errorf("CanMarkWeightAchieved() after marking = true")
	}
}

func TestSession_SaveProgressIsIdempotentPerDay(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := t.Context()
	curl := f.createExercise(t, "Curl", workout.MuscleGroupBiceps, workout.ExerciseTypeIsolation, workout.WeightTypeAdditional)
	f.commit(t, quota(workout.MuscleGroupBiceps, 0, 0, 1))
	session, err := f.engine.StartOrResume(ctx, userID)
	if err != nil {
		t.Fatalf("StartOrResume() error = %v", err)
	}

	if err = session.SetWeight(curl.ID, 12); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}
	if err = session.ToggleSetCompleted(curl.ID, 0); err != nil {
		t.Fatalf("ToggleSetCompleted() error = %v", err)
	}
	first, err := session.MarkWeightAchieved(ctx, curl.ID)
	if err != nil {
		t.Fatalf("MarkWeightAchieved() error = %v", err)
	}

	f.clock.Advance(10 * time.Minute)
	if err = session.SetWeight(curl.ID, 14); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}
	if err = session.ToggleSetCompleted(curl.ID, 1); err != nil {
		t.Fatalf("ToggleSetCompleted() error = %v", err)
	}
	second, err := session.SaveProgress(ctx, curl.ID)
	if err != nil {
		t.Fatalf("SaveProgress() error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("SaveProgress() created a new log %s, want %s", second.ID, first.ID)
	}

	records := f.logs(t, curl.ID)
	if len(records) != 1 {
		t.Fatalf("stored %d logs, want 1", len(records))
	}
	rec := records[0]
	got := map[string]any{
		"weight_used":     rec.Float("weight_used"),
		"sets_completed":  rec.Int("sets_completed"),
		"sets_planned":    rec.Int("sets_planned"),
		"reps_completed":  rec.Int("reps_completed"),
		"reps_planned":    rec.Int("reps_planned"),
		"completed":       rec.Int("completed"),
		"weight_achieved": rec.Int("weight_achieved"),
		"workout_date":    rec.String("workout_date"),
	}
	want := map[string]any{
		"weight_used":     14.0,
		"sets_completed":  2,
		"sets_planned":    3,
		"reps_completed":  20,
		"reps_planned":    30,
		"completed":       0,
		"weight_achieved": 0,
		"workout_date":    "2025-03-10",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stored log mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_DeletedExercise(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := t.Context()
	lunge := f.createExercise(t, "Lunge", workout.MuscleGroupLegs, workout.ExerciseTypeAuxiliary, workout.WeightTypeAdditional)
	f.createExercise(t, "Squat", workout.MuscleGroupLegs, workout.ExerciseTypePrimary, workout.WeightTypeAdditional)
	f.commit(t, quota(workout.MuscleGroupLegs, 1, 1, 0))
	if _, err := f.catalog.Delete(ctx, userID, lunge.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	session, err := f.engine.StartOrResume(ctx, userID)
	if err != nil {
		t.Fatalf("StartOrResume() error = %v", err)
	}
	view := session.View()
	if len(view.Exercises) != 2 {
		t.Fatalf("session has %d exercises, want 2", len(view.Exercises))
	}
	dangling := view.Exercises[1]
	if dangling.ExerciseID != lunge.ID || dangling.Exercise != nil || len(dangling.Sets) != 0 {
		t.Errorf("dangling exercise = %+v", dangling)
	}
	if got := session.ProgressPercent(); got != 0 {
		t.Errorf("ProgressPercent() = %v, want 0", got)
	}
	squat := view.Exercises[0]
	for i := range squat.Sets {
		if err = session.ToggleSetCompleted(squat.ExerciseID, i); err != nil {
			t.Fatalf("ToggleSetCompleted(%d) error = %v", i, err)
		}
	}
	// The dangling exercise has no sets and never counts as completed.
	if got := session.ProgressPercent(); got != 50 {
		t.Errorf("ProgressPercent() = %v, want 50", got)
	}
	if _, err = session.SaveProgress(ctx, lunge.ID); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("SaveProgress() of deleted exercise error = %v, want ErrNotFound", err)
	}
	if _, err = session.Complete(ctx); err != nil {
		t.Errorf("Complete() error = %v", err)
	}
}

func TestSession_MarkWeightAchieved(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := t.Context()
	row := f.createExercise(t, "Cable Row", workout.MuscleGroupBack, workout.ExerciseTypeAuxiliary, workout.WeightTypeAdditional)
	f.commit(t, quota(workout.MuscleGroupBack, 0, 1, 0))
	session, err := f.engine.StartOrResume(ctx, userID)
	if err != nil {
		t.Fatalf("StartOrResume() error = %v", err)
	}

	if _, err = session.MarkWeightAchieved(ctx, row.ID); !errors.Is(err, workout.ErrCannotMarkWeightAchieved) {
		t.Errorf("MarkWeightAchieved() without completed sets error = %v, want ErrCannotMarkWeightAchieved", err)
	}
	if records := f.logs(t, row.ID); len(records) != 0 {
		t.Errorf("rejected MarkWeightAchieved() stored %d logs", len(records))
	}
	if _, err = session.MarkWeightAchieved(ctx, "missing"); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("MarkWeightAchieved(missing) error = %v, want ErrNotFound", err)
	}

	if err = session.ToggleSetCompleted(row.ID, 0); err != nil {
		t.Fatalf("ToggleSetCompleted() error = %v", err)
	}
	const callers = 8
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	for range callers {
		wg.Go(func() {
			_, markErr := session.MarkWeightAchieved(ctx, row.ID)
			switch {
			case markErr == nil:
				succeeded.Add(1)
			case errors.Is(markErr, workout.ErrCannotMarkWeightAchieved):
				rejected.Add(1)
			default:
				t.Errorf("MarkWeightAchieved() error = %v", markErr)
			}
		})
	}
	wg.Wait()
	if succeeded.Load() != 1 || rejected.Load() != callers-1 {
		t.Errorf("MarkWeightAchieved() succeeded %d times and was rejected %d times, want 1 and %d",
			succeeded.Load(), rejected.Load(), callers-1)
	}

	// A plain save resets the flag so the weight can be marked achieved again.
	if _, err = session.SaveProgress(ctx, row.ID); err != nil {
		t.Fatalf("SaveProgress() error = %v", err)
	}
	if !session.CanMarkWeightAchieved(row.ID) {
		t.Errorf("CanMarkWeightAchieved() after SaveProgress() = false")
	}
	if _, err = session.MarkWeightAchieved(ctx, row.ID); err != nil {
		t.Errorf("MarkWeightAchieved() after SaveProgress() error = %v", err)
	}
}

// failingStore fails updates of the workouts table while fail is set.
type failingStore struct {
	tablestore.Store
	fail *atomic.Bool
}

var errInjected = errors.New("injected failure")

func (s failingStore) Update(ctx context.Context, table string, id string, patch tablestore.Record) error {
	if table == "workouts" && s.fail.Load() {
		return errInjected
	}
	return s.Store.Update(ctx, table, id, patch) //nolint:wrapcheck // test wrapper.
}

func (s failingStore) InTx(ctx context.Context, fn func(ctx context.Context, tx tablestore.Store) error) error {
	return s.Store.InTx(ctx, func(ctx context.Context, tx tablestore.Store) error { //nolint:wrapcheck // test wrapper.
		return fn(ctx, failingStore{Store: tx, fail: s.fail})
	})
}

func TestSession_Complete(t *testing.T) {
	t.Parallel()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	fail := &atomic.Bool{}
	f := newFixtureWithStore(t, failingStore{Store: newStore(t, logger), fail: fail}, logger)
	ctx := t.Context()

	dip := f.createExercise(t, "Weighted Dip", workout.MuscleGroupTriceps, workout.ExerciseTypePrimary, workout.WeightTypeAdditional)
	pullUp := f.createExercise(t, "Assisted Pull-up", workout.MuscleGroupBack, workout.ExerciseTypePrimary, workout.WeightTypeAssisted)
	f.commit(t, quota(workout.MuscleGroupTriceps, 1, 0, 0), quota(workout.MuscleGroupBack, 1, 0, 0))
	session, err := f.engine.StartOrResume(ctx, userID)
	if err != nil {
		t.Fatalf("StartOrResume() error = %v", err)
	}

	if err = session.SetWeight(dip.ID, 20); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}
	if err = session.SetWeight(pullUp.ID, 30); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}
	for _, step := range []struct {
		exerciseID string
		set        int
	}{{dip.ID, 0}, {dip.ID, 1}, {pullUp.ID, 2}} {
		if err = session.ToggleSetCompleted(step.exerciseID, step.set); err != nil {
			t.Fatalf("ToggleSetCompleted() error = %v", err)
		}
	}
	if _, err = session.MarkWeightAchieved(ctx, pullUp.ID); err != nil {
		t.Fatalf("MarkWeightAchieved() error = %v", err)
	}

	// (70+20)*10*2 for the dips and (70-30)*10 for the pull-up.
	wantTotals := workout.Totals{WeightLifted: 2200, Volume: 30}
	before := session.View()
	if diff := cmp.Diff(wantTotals, before.Totals); diff != "" {
		t.Errorf("Totals mismatch (-want +got):\n%s", diff)
	}

	fail.Store(true)
	f.clock.Advance(45 * time.Minute)
	if _, err = session.Complete(ctx); !errors.Is(err, errInjected) {
		t.Fatalf("Complete() error = %v, want injected failure", err)
	}
	var storageErr *workout.StorageError
	if !errors.As(err, &storageErr) {
		t.Errorf("Complete() error = %v, want StorageError", err)
	}
	if diff := cmp.Diff(before, session.View()); diff != "" {
		t.Errorf("failed Complete() changed the session (-want +got):\n%s", diff)
	}
	if records := f.logs(t, dip.ID); len(records) != 0 {
		t.Errorf("failed Complete() stored %d logs", len(records))
	}

	fail.Store(false)
	completed, err := session.Complete(ctx)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if completed.TotalWeightLifted == nil || *completed.TotalWeightLifted != 2200 {
		t.Errorf("TotalWeightLifted = %v, want 2200", completed.TotalWeightLifted)
	}
	if completed.TotalVolume == nil || *completed.TotalVolume != 30 {
		t.Errorf("TotalVolume = %v, want 30", completed.TotalVolume)
	}
	if got := completed.Duration(); got != 45*time.Minute {
		t.Errorf("Duration() = %v, want 45m", got)
	}

	dipLogs := f.logs(t, dip.ID)
	if len(dipLogs) != 1 || dipLogs[0].Int("reps_completed") != 20 || dipLogs[0].Float("weight_used") != 20 {
		t.Errorf("dip logs = %v", dipLogs)
	}
	// Completing saves every exercise like SaveProgress, which resets the earlier weight achieved flag.
	pullUpLogs := f.logs(t, pullUp.ID)
	if len(pullUpLogs) != 1 || pullUpLogs[0].Int("weight_achieved") != 0 || pullUpLogs[0].Int("sets_completed") != 1 {
		t.Errorf("pull-up logs after Complete() = %v, want one log with weight_achieved 0", pullUpLogs)
	}

	if err = session.ToggleSetCompleted(dip.ID, 2); !errors.Is(err, workout.ErrSessionCompleted) {
		t.Errorf("ToggleSetCompleted() after Complete() error = %v, want ErrSessionCompleted", err)
	}
	if _, err = session.Complete(ctx); !errors.Is(err, workout.ErrSessionCompleted) {
		t.Errorf("second Complete() error = %v, want ErrSessionCompleted", err)
	}
	if _, err = f.engine.StartOrResume(ctx, userID); !errors.Is(err, workout.ErrNoActiveWorkout) {
		t.Errorf("StartOrResume() after Complete() error = %v, want ErrNoActiveWorkout", err)
	}
}
