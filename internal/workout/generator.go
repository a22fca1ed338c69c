package workout

import (
	"cmp"
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/liftplan/internal/tablestore"
)

// Generator selects exercises for a new workout and persists the chosen plan.
type Generator struct {
	store  tablestore.Store
	oracle *Oracle
	now    func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewGenerator(store tablestore.Store, oracle *Oracle, rng *rand.Rand, now func() time.Time) *Generator {
	return &Generator{store: store, oracle: oracle, now: now, mu: sync.Mutex{}, rng: rng}
}

// pick returns the first n members of a random permutation of bucket, or all of them if there are fewer.
func (g *Generator) pick(bucket []Exercise, n int) []Exercise {
	n = min(max(n, 0), len(bucket))
	if n == 0 {
		return nil
	}
	g.mu.Lock()
	perm := g.rng.Perm(len(bucket))
	g.mu.Unlock()
	picked := make([]Exercise, n)
	for i := range n {
		picked[i] = bucket[perm[i]]
	}
	return picked
}

// Generate builds an ordered list of unpersisted candidates. Muscle groups are processed in the order given and
// within a group the quotas are filled in the order primary, auxiliary, isolation. Quotas larger than the number of
// available exercises return what is available. No exercise appears twice.
func (g *Generator) Generate(ctx context.Context, userID string, quotas []GroupQuota) ([]WorkoutExercise, error) {
	for _, q := range quotas {
		if !q.MuscleGroup.Valid() {
			return nil, &ValidationError{Field: "muscle_group", Reason: fmt.Sprintf("unknown muscle group %q", q.MuscleGroup)}
		}
	}
	catalog, err := listExercises(ctx, g.store, userID)
	if err != nil {
		return nil, storageError("generate workout", err)
	}

	var (
		candidates []WorkoutExercise
		selected   = make(map[string]bool)
	)
	for _, q := range quotas {
		for _, exerciseType := range exerciseTypeOrder {
			var bucket []Exercise
			for _, e := range catalog {
				if e.MuscleGroup == q.MuscleGroup && e.ExerciseType == exerciseType && !selected[e.ID] {
					bucket = append(bucket, e)
				}
			}
			for _, exercise := range g.pick(bucket, q.count(exerciseType)) {
				suggestion, suggestErr := g.oracle.suggest(ctx, g.store, userID, exercise.ID)
				if suggestErr != nil {
					return nil, storageError("generate workout", suggestErr)
				}
				selected[exercise.ID] = true
				candidates = append(candidates, WorkoutExercise{
					ID:              uuid.NewString(),
					WorkoutID:       "",
					ExerciseID:      exercise.ID,
					OrderIndex:      len(candidates),
					SetsPlanned:     setsPlanned(exercise),
					WeightSuggested: suggestion,
					Exercise:        &exercise,
				})
			}
		}
	}
	return candidates, nil
}

func setsPlanned(e Exercise) int {
	if e.DefaultSets > 0 {
		return e.DefaultSets
	}
	return DefaultSets
}

// Replace swaps the exercise of the candidate targetID for a random exercise of the same muscle group and type that
// is not yet part of the candidates. The candidate keeps its id, order index and planned sets. The input slice is
// not modified.
func (g *Generator) Replace(
	ctx context.Context,
	userID string,
	candidates []WorkoutExercise,
	targetID string,
) ([]WorkoutExercise, error) {
	idx := slices.IndexFunc(candidates, func(we WorkoutExercise) bool { return we.ID == targetID })
	if idx < 0 {
		return nil, fmt.Errorf("candidate %s: %w", targetID, ErrNotFound)
	}

	catalog, err := listExercises(ctx, g.store, userID)
	if err != nil {
		return nil, storageError("replace exercise", err)
	}
	targetIdx := slices.IndexFunc(catalog, func(e Exercise) bool { return e.ID == candidates[idx].ExerciseID })
	if targetIdx < 0 {
		return nil, fmt.Errorf("exercise %s: %w", candidates[idx].ExerciseID, ErrNotFound)
	}
	target := catalog[targetIdx]

	used := make(map[string]bool, len(candidates))
	for _, we := range candidates {
		used[we.ExerciseID] = true
	}
	var pool []Exercise
	for _, e := range catalog {
		if e.MuscleGroup == target.MuscleGroup && e.ExerciseType == target.ExerciseType && !used[e.ID] {
			pool = append(pool, e)
		}
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("replace %s: %w", target.Name, ErrNoAlternatives)
	}

	g.mu.Lock()
	replacement := pool[g.rng.IntN(len(pool))]
	g.mu.Unlock()

	suggestion, err := g.oracle.suggest(ctx, g.store, userID, replacement.ID)
	if err != nil {
		return nil, storageError("replace exercise", err)
	}

	replaced := slices.Clone(candidates)
	replaced[idx].ExerciseID = replacement.ID
	replaced[idx].WeightSuggested = suggestion
	replaced[idx].Exercise = &replacement
	return replaced, nil
}

// Commit stores the candidates as a new workout in a single unit of work. Every exercise must belong to the user.
func (g *Generator) Commit(
	ctx context.Context,
	userID string,
	candidates []WorkoutExercise,
	groups []MuscleGroup,
) (Workout, error) {
	if len(candidates) == 0 {
		return Workout{}, &ValidationError{Field: "exercises", Reason: "at least one exercise is required"}
	}
	for _, group := range groups {
		if !group.Valid() {
			return Workout{}, &ValidationError{Field: "muscle_groups", Reason: fmt.Sprintf("unknown muscle group %q", group)}
		}
	}
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c.ExerciseID == "" {
			return Workout{}, &ValidationError{Field: "exercise_id", Reason: "required"}
		}
		if seen[c.ExerciseID] {
			return Workout{}, &ValidationError{Field: "exercise_id", Reason: fmt.Sprintf("duplicate exercise %s", c.ExerciseID)}
		}
		seen[c.ExerciseID] = true
	}

	now := g.now().UTC()
	workout := Workout{ //nolint:exhaustruct // temporal and aggregate fields are set later in the session.
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         "Workout " + now.Format(dateFormat),
		MuscleGroups: slices.Clone(groups),
		CreatedAt:    now,
	}
	if workout.MuscleGroups == nil {
		workout.MuscleGroups = []MuscleGroup{}
	}
	rec, err := workoutRecord(workout)
	if err != nil {
		return Workout{}, err
	}

	// Order indexes are renumbered to 0..N-1 keeping the order they describe. Ties keep the order of candidates.
	exercises := slices.Clone(candidates)
	slices.SortStableFunc(exercises, func(a, b WorkoutExercise) int { return cmp.Compare(a.OrderIndex, b.OrderIndex) })
	for i := range exercises {
		exercises[i].ID = uuid.NewString()
		exercises[i].WorkoutID = workout.ID
		exercises[i].OrderIndex = i
	}

	err = g.store.InTx(ctx, func(ctx context.Context, tx tablestore.Store) error {
		for i, we := range exercises {
			exercise, err := findExercise(ctx, tx, userID, we.ExerciseID)
			if err != nil {
				return err
			}
			if exercise == nil {
				return fmt.Errorf("exercise %s: %w", we.ExerciseID, ErrNotFound)
			}
			exercises[i].Exercise = exercise
		}
		if err := tx.Insert(ctx, tableWorkouts, rec); err != nil {
			return fmt.Errorf("insert workout: %w", err)
		}
		for _, we := range exercises {
			if err := tx.Insert(ctx, tableWorkoutExercises, workoutExerciseRecord(we)); err != nil {
				return fmt.Errorf("insert workout exercise %d: %w", we.OrderIndex, err)
			}
		}
		return nil
	})
	if err != nil {
		return Workout{}, storageError("commit workout", err)
	}
	workout.Exercises = exercises
	return workout, nil
}
