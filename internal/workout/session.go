package workout

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/myrjola/liftplan/internal/tablestore"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentResolves bounds the concurrent catalog lookups when resolving workout exercises.
const maxConcurrentResolves = 4

// EffectiveWeight maps the weight entered for a set to the load used in statistics.
func EffectiveWeight(exercise *Exercise, raw float64, bodyWeight float64) float64 {
	if exercise == nil {
		return raw
	}
	switch exercise.WeightType {
	case WeightTypeBodyweight:
		return bodyWeight
	case WeightTypeAdditional:
		return bodyWeight + raw
	case WeightTypeAssisted:
		return math.Max(0, bodyWeight-raw)
	default:
		return raw
	}
}

// SetState is the in-memory working state of one set.
type SetState struct {
	Number    int     `json:"set_number"`
	Reps      int     `json:"reps"`
	Weight    float64 `json:"weight"`
	Completed bool    `json:"completed"`
}

// SessionExercise is a workout exercise together with the state of its sets.
type SessionExercise struct {
	WorkoutExercise
	Sets []SetState `json:"sets"`
}

// Totals are the aggregates over completed sets.
type Totals struct {
	WeightLifted float64 `json:"total_weight_lifted"`
	Volume       int     `json:"total_volume"`
}

// SessionView is a point-in-time copy of a session.
type SessionView struct {
	Workout         Workout                `json:"workout"`
	Exercises       []SessionExercise      `json:"exercises"`
	Logs            map[string]ExerciseLog `json:"logs"`
	BodyWeight      float64                `json:"body_weight"`
	ProgressPercent float64                `json:"progress_percent"`
	Totals          Totals                 `json:"totals"`
	Completed       bool                   `json:"completed"`
}

// Engine starts and resumes workout sessions.
type Engine struct {
	store    tablestore.Store
	logger   *slog.Logger
	now      func() time.Time
	recorder Recorder
}

func NewEngine(store tablestore.Store, logger *slog.Logger, now func() time.Time) *Engine {
	return &Engine{store: store, logger: logger, now: now, recorder: nopRecorder{}}
}

// today returns the calendar date logs are keyed by.
func (e *Engine) today() string {
	return e.now().UTC().Format(dateFormat)
}

// StartOrResume returns a handle to the user's most recent uncompleted workout. The first call stamps the start
// time and snapshots the body weight. ErrNoActiveWorkout is returned if there is no uncompleted workout.
func (e *Engine) StartOrResume(ctx context.Context, userID string) (*Session, error) {
	active, err := findWorkouts(ctx, e.store, userID, 1, tablestore.IsNull("completed_at"))
	if err != nil {
		return nil, storageError("find active workout", err)
	}
	if len(active) == 0 {
		return nil, ErrNoActiveWorkout
	}
	workout := active[0]

	if workout.StartTime == nil {
		if workout, err = e.stampStart(ctx, userID, workout); err != nil {
			return nil, storageError("start workout", err)
		}
	}

	slots, err := listWorkoutExercises(ctx, e.store, workout.ID)
	if err != nil {
		return nil, storageError("load workout exercises", err)
	}
	e.resolveExercises(ctx, userID, slots)

	logs, err := listLogsForDate(ctx, e.store, userID, e.today())
	if err != nil {
		return nil, storageError("load logs", err)
	}

	bodyWeight := DefaultBodyWeight
	if workout.UserWeight != nil {
		bodyWeight = *workout.UserWeight
	} else if bodyWeight, err = currentBodyWeight(ctx, e.store, userID); err != nil {
		return nil, storageError("load body weight", err)
	}

	exercises := make([]SessionExercise, len(slots))
	for i, slot := range slots {
		exercises[i] = SessionExercise{WorkoutExercise: slot, Sets: initialSets(slot, logs[slot.ExerciseID])}
	}
	workout.Exercises = slots

	return &Session{
		mu:         sync.Mutex{},
		engine:     e,
		userID:     userID,
		workout:    workout,
		exercises:  exercises,
		logs:       logs,
		bodyWeight: bodyWeight,
		completed:  false,
	}, nil
}

// stampStart sets the start time and body weight snapshot unless another request already did.
func (e *Engine) stampStart(ctx context.Context, userID string, workout Workout) (Workout, error) {
	err := e.store.InTx(ctx, func(ctx context.Context, tx tablestore.Store) error {
		fresh, err := findWorkout(ctx, tx, userID, workout.ID)
		if err != nil {
			return err
		}
		if fresh == nil {
			return fmt.Errorf("workout %s: %w", workout.ID, ErrNotFound)
		}
		workout = *fresh
		if workout.StartTime != nil {
			return nil
		}
		bodyWeight, err := currentBodyWeight(ctx, tx, userID)
		if err != nil {
			return err
		}
		start := e.now().UTC()
		if err = tx.Update(ctx, tableWorkouts, workout.ID, tablestore.Record{
			"start_time":  start,
			"user_weight": bodyWeight,
		}); err != nil {
			return fmt.Errorf("update start time: %w", err)
		}
		workout.StartTime = &start
		workout.UserWeight = &bodyWeight
		return nil
	})
	return workout, err //nolint:wrapcheck // wrapped by caller.
}

// resolveExercises looks up the catalog entry of every slot concurrently. A failed lookup is logged and leaves the
// exercise absent, the same as a deleted exercise.
func (e *Engine) resolveExercises(ctx context.Context, userID string, slots []WorkoutExercise) {
	resolveExercises(ctx, e.store, e.logger, userID, slots)
}

func resolveExercises(
	ctx context.Context,
	store tablestore.Store,
	logger *slog.Logger,
	userID string,
	slots []WorkoutExercise,
) {
	var g errgroup.Group
	g.SetLimit(maxConcurrentResolves)
	for i := range slots {
		g.Go(func() error {
			exercise, err := findExercise(ctx, store, userID, slots[i].ExerciseID)
			if err != nil {
				logger.LogAttrs(ctx, slog.LevelWarn, "failed to resolve exercise",
					slog.String("exercise_id", slots[i].ExerciseID), slog.Any("error", err))
				return nil
			}
			slots[i].Exercise = exercise
			return nil
		})
	}
	_ = g.Wait() // goroutines never fail
}

// initialSets builds the working sets of a slot. Deleted exercises get no sets.
func initialSets(slot WorkoutExercise, log ExerciseLog) []SetState {
	if slot.Exercise == nil {
		return nil
	}
	count := slot.SetsPlanned
	if count <= 0 {
		count = setsPlanned(*slot.Exercise)
	}
	reps := slot.Exercise.DefaultReps
	if reps <= 0 {
		reps = DefaultReps
	}
	var weight float64
	switch {
	case log.WeightUsed != nil && *log.WeightUsed != 0:
		weight = *log.WeightUsed
	case slot.WeightSuggested != nil:
		weight = *slot.WeightSuggested
	}
	sets := make([]SetState, count)
	for i := range sets {
		sets[i] = SetState{Number: i + 1, Reps: reps, Weight: weight, Completed: false}
	}
	return sets
}

// Session is the explicit handle of an in-progress workout. Set changes are kept in memory until saved.
type Session struct {
	mu         sync.Mutex
	engine     *Engine
	userID     string
	workout    Workout
	exercises  []SessionExercise
	logs       map[string]ExerciseLog
	bodyWeight float64
	completed  bool
}

// WorkoutID returns the id of the workout the session tracks.
func (s *Session) WorkoutID() string {
	return s.workout.ID
}

// exercise returns the session exercise with the given exercise id. The caller must hold s.mu.
func (s *Session) exercise(exerciseID string) (*SessionExercise, error) {
	if s.completed {
		return nil, ErrSessionCompleted
	}
	for i := range s.exercises {
		if s.exercises[i].ExerciseID == exerciseID {
			return &s.exercises[i], nil
		}
	}
	return nil, fmt.Errorf("exercise %s in workout: %w", exerciseID, ErrNotFound)
}

func (s *Session) set(exerciseID string, setIndex int) (*SetState, error) {
	ex, err := s.exercise(exerciseID)
	if err != nil {
		return nil, err
	}
	if setIndex < 0 || setIndex >= len(ex.Sets) {
		return nil, fmt.Errorf("set %d of exercise %s: %w", setIndex, exerciseID, ErrNotFound)
	}
	return &ex.Sets[setIndex], nil
}

// SetWeight sets the weight of every set of the exercise.
func (s *Session) SetWeight(exerciseID string, weight float64) error {
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return &ValidationError{Field: "weight", Reason: "must be a non-negative number"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, err := s.exercise(exerciseID)
	if err != nil {
		return err
	}
	for i := range ex.Sets {
		ex.Sets[i].Weight = weight
	}
	return nil
}

// ToggleSetCompleted flips the completed flag of one set. setIndex starts from 0.
func (s *Session) ToggleSetCompleted(exerciseID string, setIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, err := s.set(exerciseID, setIndex)
	if err != nil {
		return err
	}
	set.Completed = !set.Completed
	return nil
}

// SetReps sets the reps of one set. Zero is allowed.
func (s *Session) SetReps(exerciseID string, setIndex int, reps int) error {
	if reps < 0 {
		return &ValidationError{Field: "reps", Reason: "must not be negative"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, err := s.set(exerciseID, setIndex)
	if err != nil {
		return err
	}
	set.Reps = reps
	return nil
}

// StepReps adds delta to the reps of one set, never going below one.
func (s *Session) StepReps(exerciseID string, setIndex int, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, err := s.set(exerciseID, setIndex)
	if err != nil {
		return err
	}
	set.Reps = max(1, set.Reps+delta)
	return nil
}

// buildLog aggregates the sets of ex into the log of today.
func (s *Session) buildLog(ex *SessionExercise, weightAchieved bool) ExerciseLog {
	var (
		setsCompleted int
		repsCompleted int
		repsPlanned   int
		weightUsed    float64
	)
	for i, set := range ex.Sets {
		if i == 0 {
			weightUsed = set.Weight
		}
		repsPlanned += set.Reps
		if set.Completed {
			setsCompleted++
			repsCompleted += set.Reps
		}
	}
	return ExerciseLog{
		ID:             "",
		UserID:         s.userID,
		ExerciseID:     ex.ExerciseID,
		WeightUsed:     &weightUsed,
		SetsCompleted:  setsCompleted,
		SetsPlanned:    len(ex.Sets),
		RepsCompleted:  repsCompleted,
		RepsPlanned:    repsPlanned,
		Completed:      setsCompleted == len(ex.Sets),
		WeightAchieved: weightAchieved,
		WorkoutDate:    s.engine.today(),
		CreatedAt:      s.engine.now().UTC(),
	}
}

func (s *Session) save(ctx context.Context, exerciseID string, weightAchieved bool) (ExerciseLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, err := s.exercise(exerciseID)
	if err != nil {
		return ExerciseLog{}, err
	}
	if ex.Exercise == nil {
		return ExerciseLog{}, fmt.Errorf("exercise %s: %w", exerciseID, ErrNotFound)
	}
	if weightAchieved && !s.canMarkWeightAchieved(exerciseID) {
		return ExerciseLog{}, fmt.Errorf("exercise %s: %w", exerciseID, ErrCannotMarkWeightAchieved)
	}
	log, err := upsertLog(ctx, s.engine.store, s.buildLog(ex, weightAchieved))
	if err != nil {
		return ExerciseLog{}, storageError("save progress", err)
	}
	s.logs[exerciseID] = log
	s.engine.recorder.ProgressSaved(weightAchieved)
	return log, nil
}

// SaveProgress stores the sets of the exercise as today's log, overwriting an earlier save of the same day.
// The weight achieved flag is reset.
func (s *Session) SaveProgress(ctx context.Context, exerciseID string) (ExerciseLog, error) {
	return s.save(ctx, exerciseID, false)
}

// MarkWeightAchieved saves like SaveProgress but flags the weight for an increase next time. It fails with
// ErrCannotMarkWeightAchieved unless a set is completed and today's log is not flagged yet.
func (s *Session) MarkWeightAchieved(ctx context.Context, exerciseID string) (ExerciseLog, error) {
	return s.save(ctx, exerciseID, true)
}

// CanMarkWeightAchieved reports whether at least one set is completed and today's log is not flagged yet.
func (s *Session) CanMarkWeightAchieved(exerciseID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canMarkWeightAchieved(exerciseID)
}

func (s *Session) canMarkWeightAchieved(exerciseID string) bool {
	ex, err := s.exercise(exerciseID)
	if err != nil {
		return false
	}
	if log, ok := s.logs[exerciseID]; ok && log.WeightAchieved {
		return false
	}
	return slices.ContainsFunc(ex.Sets, func(set SetState) bool { return set.Completed })
}

// ProgressPercent is the share of exercises with all sets completed. Exercises without sets never count as
// completed.
func (s *Session) ProgressPercent() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return progressPercent(s.exercises)
}

func progressPercent(exercises []SessionExercise) float64 {
	if len(exercises) == 0 {
		return 0
	}
	var done int
	for _, ex := range exercises {
		if len(ex.Sets) > 0 && !slices.ContainsFunc(ex.Sets, func(set SetState) bool { return !set.Completed }) {
			done++
		}
	}
	return float64(done) / float64(len(exercises)) * 100 //nolint:mnd // percent.
}

// Totals sums the effective weight times reps and the reps of completed sets.
func (s *Session) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totals(s.exercises, s.bodyWeight)
}

func totals(exercises []SessionExercise, bodyWeight float64) Totals {
	var t Totals
	for _, ex := range exercises {
		for _, set := range ex.Sets {
			if !set.Completed {
				continue
			}
			t.WeightLifted += EffectiveWeight(ex.Exercise, set.Weight, bodyWeight) * float64(set.Reps)
			t.Volume += set.Reps
		}
	}
	return t
}

// View returns a copy of the session state.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	exercises := make([]SessionExercise, len(s.exercises))
	for i, ex := range s.exercises {
		exercises[i] = ex
		exercises[i].Sets = slices.Clone(ex.Sets)
	}
	logs := make(map[string]ExerciseLog, len(s.logs))
	for id, log := range s.logs {
		logs[id] = log
	}
	return SessionView{
		Workout:         s.workout,
		Exercises:       exercises,
		Logs:            logs,
		BodyWeight:      s.bodyWeight,
		ProgressPercent: progressPercent(s.exercises),
		Totals:          totals(s.exercises, s.bodyWeight),
		Completed:       s.completed,
	}
}

// Complete saves every exercise, stamps the completion time and stores the totals in one unit of work. On success
// the session is cleared and further changes fail with ErrSessionCompleted. On failure the in-memory state is kept
// as is so the caller can retry.
//
// Every exercise is saved like SaveProgress, so a weight achieved flag set earlier today is reset.
func (s *Session) Complete(ctx context.Context) (Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return Workout{}, ErrSessionCompleted
	}

	var logs []ExerciseLog
	for i := range s.exercises {
		ex := &s.exercises[i]
		if ex.Exercise == nil || len(ex.Sets) == 0 {
			continue
		}
		logs = append(logs, s.buildLog(ex, false))
	}
	t := totals(s.exercises, s.bodyWeight)
	end := s.engine.now().UTC()

	stored := make([]ExerciseLog, 0, len(logs))
	err := s.engine.store.InTx(ctx, func(ctx context.Context, tx tablestore.Store) error {
		stored = stored[:0]
		for _, l := range logs {
			log, err := upsertLog(ctx, tx, l)
			if err != nil {
				return err
			}
			stored = append(stored, log)
		}
		workout, err := findWorkout(ctx, tx, s.userID, s.workout.ID, tablestore.IsNull("completed_at"))
		if err != nil {
			return err
		}
		if workout == nil {
			return ErrSessionCompleted
		}
		if err = tx.Update(ctx, tableWorkouts, s.workout.ID, tablestore.Record{
			"completed_at":        end,
			"end_time":            end,
			"total_weight_lifted": t.WeightLifted,
			"total_volume":        t.Volume,
		}); err != nil {
			return fmt.Errorf("update workout: %w", err)
		}
		return nil
	})
	if err != nil {
		return Workout{}, storageError("complete workout", err)
	}

	for _, log := range stored {
		s.logs[log.ExerciseID] = log
	}
	completed := s.workout
	completed.CompletedAt = &end
	completed.EndTime = &end
	completed.TotalWeightLifted = &t.WeightLifted
	completed.TotalVolume = &t.Volume

	s.completed = true
	s.exercises = nil
	s.logs = map[string]ExerciseLog{}
	s.workout = completed
	s.engine.recorder.WorkoutCompleted(t.WeightLifted, t.Volume, completed.Duration())
	return completed, nil
}
