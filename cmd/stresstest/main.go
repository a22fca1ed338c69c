package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/myrjola/liftplan/internal/e2etest"
	"github.com/myrjola/liftplan/internal/logging"
	"github.com/myrjola/liftplan/internal/testhelpers"
	"github.com/myrjola/liftplan/internal/workout"
	"golang.org/x/sync/errgroup"
)

const (
	testTimeout                = 10 * time.Second
	userRegistrationTimeout    = 30 * time.Second
	scenarioTimeout            = 30 * time.Second
	historyTimeout             = 5 * time.Minute
	maxConcurrentRegistrations = 10
	maxConcurrentOperations    = 20
	baseWeight                 = 15.0
	weightRange                = 20
	successRateThreshold       = 95.0
	expectedArgsCount          = 2
	percentageMultiplier       = 100
	historyWorkouts            = 12
	numUsers                   = 10
)

// seedExercises is the catalog every load test user starts with.
var seedExercises = []workout.ExerciseFields{ //nolint:gochecknoglobals // read-only fixture.
	{
		Name: "Bench press", MuscleGroup: workout.MuscleGroupChest, WeightType: workout.WeightTypeAdditional,
		ExerciseType: workout.ExerciseTypePrimary, Technique: "Lower the bar to the chest and press.",
		DefaultSets: 3, DefaultReps: 8,
	},
	{
		Name: "Push-up", MuscleGroup: workout.MuscleGroupChest, WeightType: workout.WeightTypeBodyweight,
		ExerciseType: workout.ExerciseTypeAuxiliary, Technique: "Keep the body straight.",
		DefaultSets: 3, DefaultReps: 12,
	},
	{
		Name: "Barbell row", MuscleGroup: workout.MuscleGroupBack, WeightType: workout.WeightTypeAdditional,
		ExerciseType: workout.ExerciseTypePrimary, Technique: "Pull the bar to the lower chest.",
		DefaultSets: 3, DefaultReps: 8,
	},
	{
		Name: "Assisted pull-up", MuscleGroup: workout.MuscleGroupBack, WeightType: workout.WeightTypeAssisted,
		ExerciseType: workout.ExerciseTypeAuxiliary, Technique: "Pull until the chin clears the bar.",
		DefaultSets: 3, DefaultReps: 6,
	},
}

// AuthenticatedUser holds a client with valid session.
type AuthenticatedUser struct {
	Client *e2etest.Client
	UserID string
}

func TestAuth(ctx context.Context, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()
	var err error

	if _, err = client.Register(ctx); err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	if _, err = client.Logout(ctx); err != nil {
		return fmt.Errorf("logout user: %w", err)
	}
	if _, err = client.Login(ctx); err != nil {
		return fmt.Errorf("login user: %w", err)
	}
	return nil
}

// RegisterAndAuthenticateUser creates a new user with a seeded exercise catalog.
func RegisterAndAuthenticateUser(
	ctx context.Context,
	url, hostname string,
	userIndex int,
	logger *slog.Logger,
) (*AuthenticatedUser, error) {
	// Each user needs their own cookie jar.
	client, err := e2etest.NewClient(url, hostname, url)
	if err != nil {
		return nil, fmt.Errorf("creating client for user %d: %w", userIndex, err)
	}
	if _, err = client.Register(ctx); err != nil {
		return nil, fmt.Errorf("registering user %d: %w", userIndex, err)
	}
	for _, fields := range seedExercises {
		if err = client.DoJSON(ctx, http.MethodPost, "/api/exercises", fields, nil); err != nil {
			return nil, fmt.Errorf("seeding exercise %s for user %d: %w", fields.Name, userIndex, err)
		}
	}
	if err = client.DoJSON(ctx, http.MethodPut, "/api/settings", map[string]float64{"body_weight": 80}, nil); err != nil {
		return nil, fmt.Errorf("setting body weight for user %d: %w", userIndex, err)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "User registered and authenticated", slog.Int("user_index", userIndex))

	return &AuthenticatedUser{
		Client: client,
		UserID: "user_" + strconv.Itoa(userIndex),
	}, nil
}

// SetupUsers registers the specified number of users.
func SetupUsers(
	ctx context.Context,
	url, hostname string,
	count int,
	logger *slog.Logger,
) ([]*AuthenticatedUser, error) {
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting user registration", slog.Int("num_users", count))

	var (
		users   = make([]*AuthenticatedUser, 0, count)
		usersMu sync.Mutex
		g       errgroup.Group
	)
	g.SetLimit(maxConcurrentRegistrations)

	for i := range count {
		g.Go(func() error {
			userCtx, cancel := context.WithTimeout(ctx, userRegistrationTimeout)
			defer cancel()

			user, err := RegisterAndAuthenticateUser(userCtx, url, hostname, i, logger)
			if err != nil {
				return fmt.Errorf("user %d: %w", i, err)
			}
			usersMu.Lock()
			users = append(users, user)
			usersMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "Some user registrations failed",
			slog.Int("successful_count", len(users)))
		return users, fmt.Errorf("registration failures: %w", err)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "All users registered successfully", slog.Int("total_users", len(users)))
	return users, nil
}

// runWorkout plans, performs and completes one full workout.
func runWorkout(ctx context.Context, client *e2etest.Client, iteration int) error {
	var (
		quotas = []workout.GroupQuota{
			{MuscleGroup: workout.MuscleGroupChest, Primary: 1, Auxiliary: 1, Isolation: 0},
			{MuscleGroup: workout.MuscleGroupBack, Primary: 1, Auxiliary: 1, Isolation: 0},
		}
		plan struct {
			Candidates []workout.WorkoutExercise `json:"candidates"`
		}
	)
	if err := client.DoJSON(ctx, http.MethodPost, "/api/plans/generate", map[string]any{"quotas": quotas}, &plan); err != nil {
		return fmt.Errorf("generate plan: %w", err)
	}
	if len(plan.Candidates) == 0 {
		return errors.New("generated plan is empty")
	}
	commit := map[string]any{
		"candidates":    plan.Candidates,
		"muscle_groups": []workout.MuscleGroup{workout.MuscleGroupChest, workout.MuscleGroupBack},
	}
	if err := client.DoJSON(ctx, http.MethodPost, "/api/plans/commit", commit, nil); err != nil {
		return fmt.Errorf("commit plan: %w", err)
	}

	var view workout.SessionView
	if err := client.DoJSON(ctx, http.MethodGet, "/api/session", nil, &view); err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	for _, ex := range view.Exercises {
		base := "/api/session/exercises/" + ex.ExerciseID
		if ex.Exercise != nil && ex.Exercise.WeightType != workout.WeightTypeBodyweight {
			weight := baseWeight + float64((iteration+int(time.Now().UnixNano()))%weightRange)
			if err := client.DoJSON(ctx, http.MethodPut, base+"/weight", map[string]float64{"weight": weight}, nil); err != nil {
				return fmt.Errorf("set weight: %w", err)
			}
		}
		for i := range ex.Sets {
			if err := client.DoJSON(ctx, http.MethodPost, base+"/sets/"+strconv.Itoa(i)+"/toggle", nil, nil); err != nil {
				return fmt.Errorf("toggle set %d: %w", i, err)
			}
		}
		path := base + "/save"
		if iteration%2 == 0 {
			path = base + "/weight-achieved"
		}
		if err := client.DoJSON(ctx, http.MethodPost, path, nil, nil); err != nil {
			return fmt.Errorf("save progress: %w", err)
		}
	}
	if err := client.DoJSON(ctx, http.MethodPost, "/api/session/complete", nil, nil); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return nil
}

// GenerateWorkoutHistory completes a series of workouts so that the progression has data to work with.
func GenerateWorkoutHistory(ctx context.Context, user *AuthenticatedUser, logger *slog.Logger) error {
	for i := range historyWorkouts {
		if err := runWorkout(ctx, user.Client, i); err != nil {
			return fmt.Errorf("workout %d: %w", i, err)
		}
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "Generated workout history", slog.String("user_id", user.UserID))
	return nil
}

func GenerateWorkoutHistoryForUsers(ctx context.Context, users []*AuthenticatedUser, logger *slog.Logger) error {
	var g errgroup.Group
	g.SetLimit(maxConcurrentRegistrations)
	for _, user := range users {
		g.Go(func() error {
			historyCtx, cancel := context.WithTimeout(ctx, historyTimeout)
			defer cancel()
			if err := GenerateWorkoutHistory(historyCtx, user, logger); err != nil {
				return fmt.Errorf("user %s: %w", user.UserID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("workout history generation failures: %w", err)
	}
	return nil
}

// WorkoutScenario is the flow of a returning user: check history, look up a weight and do a workout.
func WorkoutScenario(ctx context.Context, user *AuthenticatedUser, logger *slog.Logger) error {
	client := user.Client

	if err := client.DoJSON(ctx, http.MethodGet, "/api/history", nil, nil); err != nil {
		return fmt.Errorf("get history: %w", err)
	}
	var exercises []workout.Exercise
	if err := client.DoJSON(ctx, http.MethodGet, "/api/exercises", nil, &exercises); err != nil {
		return fmt.Errorf("list exercises: %w", err)
	}
	if len(exercises) == 0 {
		return errors.New("catalog is empty")
	}
	path := "/api/exercises/" + exercises[0].ID + "/suggested-weight"
	if err := client.DoJSON(ctx, http.MethodGet, path, nil, nil); err != nil {
		return fmt.Errorf("get suggested weight: %w", err)
	}
	if err := runWorkout(ctx, client, historyWorkouts); err != nil {
		return err
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "Workout scenario completed", slog.String("user_id", user.UserID))
	return nil
}

// RunLoadTest runs the workout scenario concurrently for all users.
func RunLoadTest(ctx context.Context, users []*AuthenticatedUser, logger *slog.Logger) error {
	userCount := len(users)
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting load test", slog.Int("num_users", userCount))

	var successCount, failureCount atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOperations)

	for _, user := range users {
		g.Go(func() error {
			scenarioCtx, cancel := context.WithTimeout(ctx, scenarioTimeout)
			defer cancel()

			if err := WorkoutScenario(scenarioCtx, user, logger); err != nil {
				failureCount.Add(1)
				// Individual failures count against the success rate without stopping the others.
				logger.LogAttrs(scenarioCtx, slog.LevelWarn, "Scenario failed",
					slog.String("user_id", user.UserID),
					slog.Any("error", err))
				return nil
			}
			successCount.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("load test failed: %w", err)
	}

	successRate := float64(successCount.Load()) / float64(userCount) * percentageMultiplier
	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed",
		slog.Int64("successful", successCount.Load()),
		slog.Int64("failed", failureCount.Load()),
		slog.Float64("success_rate", successRate))

	if successRate < successRateThreshold {
		return fmt.Errorf("load test failed: success rate %.1f%% below threshold", successRate)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != expectedArgsCount {
		logger.LogAttrs(ctx, slog.LevelError, "usage: stresstest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))

	logger.LogAttrs(ctx, slog.LevelInfo, "Running smoke test first...")
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
		hostname = "localhost"
	}
	client, err := e2etest.NewClient(url, hostname, url)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", slog.Any("error", err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}
	if err = TestAuth(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "smoke test failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test passed ✓")

	setupStart := time.Now()
	users, err := SetupUsers(ctx, url, hostname, numUsers, logger)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to setup users", slog.Any("error", err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "User setup completed",
		slog.Duration("setup_duration", time.Since(setupStart)),
		slog.Int("authenticated_users", len(users)))

	historyStart := time.Now()
	if err = GenerateWorkoutHistoryForUsers(ctx, users, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "some workout history generation failed, continuing with load test",
			slog.Any("error", err))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Workout history generation completed",
		slog.Duration("history_duration", time.Since(historyStart)),
		slog.Int("workouts_per_user", historyWorkouts))

	loadTestStart := time.Now()
	if err = RunLoadTest(ctx, users, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "load test failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed successfully 🙌",
		slog.Duration("total_duration", time.Since(start)),
		slog.Duration("load_test_duration", time.Since(loadTestStart)),
		slog.Int("users_tested", len(users)))
}
