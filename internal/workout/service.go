package workout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/liftplan/internal/tablestore"
)

// ErrPhotosUnavailable is returned by the photo operations when no PhotoStorage is configured.
var ErrPhotosUnavailable = errors.New("photo storage not configured")

// IdentityProvider resolves the user on whose behalf the operation runs.
type IdentityProvider interface {
	CurrentUserID(ctx context.Context) (string, error)
}

// PhotoStorage stores equipment photos under object keys.
type PhotoStorage interface {
	PresignUpload(ctx context.Context, key string) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Recorder receives domain events for metrics.
type Recorder interface {
	WorkoutGenerated(exercises int)
	WorkoutCommitted(exercises int)
	ProgressSaved(weightAchieved bool)
	WorkoutCompleted(weightLifted float64, volume int, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) WorkoutGenerated(int) {}
func (nopRecorder) WorkoutCommitted(int) {}
func (nopRecorder) ProgressSaved(bool) {}
func (nopRecorder) WorkoutCompleted(float64, int, time.Duration) {}

type options struct {
	rng      *rand.Rand
	now      func() time.Time
	photos   PhotoStorage
	recorder Recorder
}

// Option configures a Service.
type Option func(*options)

// WithRand sets the random source of the workout generator.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithPhotoStorage enables equipment photos.
func WithPhotoStorage(photos PhotoStorage) Option {
	return func(o *options) { o.photos = photos }
}

// WithMetrics reports domain events to r.
func WithMetrics(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// Service exposes the workout planning operations for the current user.
type Service struct {
	identity IdentityProvider
	logger   *slog.Logger
	photos   PhotoStorage
	recorder Recorder

	catalog   *Catalog
	oracle    *Oracle
	generator *Generator
	engine    *Engine
	settings  *Settings
	history   *History
}

// NewService wires the components on top of store.
func NewService(store tablestore.Store, identity IdentityProvider, logger *slog.Logger, opts ...Option) *Service {
	o := options{
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // not used for security.
		now:      time.Now,
		photos:   nil,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	oracle := NewOracle(store)
	engine := NewEngine(store, logger, o.now)
	engine.recorder = o.recorder
	return &Service{
		identity:  identity,
		logger:    logger,
		photos:    o.photos,
		recorder:  o.recorder,
		catalog:   NewCatalog(store, o.now),
		oracle:    oracle,
		generator: NewGenerator(store, oracle, o.rng, o.now),
		engine:    engine,
		settings:  NewSettings(store, o.now),
		history:   NewHistory(store, logger),
	}
}

func (s *Service) ListExercises(ctx context.Context) ([]Exercise, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck // auth errors are propagated unchanged.
	}
	return s.catalog.List(ctx, userID)
}

func (s *Service) GetExercise(ctx context.Context, id string) (Exercise, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return Exercise{}, err //nolint:wrapcheck // auth errors are propagated unchanged.
	}
	return s.catalog.Get(ctx, userID, id)
}

func (s *Service) CreateExercise(ctx context.Context, fields ExerciseFields) (Exercise, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return Exercise{}, err //nolint:wrapcheck // auth errors are propagated unchanged.
	}
	return s.catalog.Create(ctx, userID, fields)
}

func (s *Service) UpdateExercise(ctx context.Context, id string, fields ExerciseFields) (Exercise, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return Exercise{}, err //nolint:wrapcheck // auth errors are propagated unchanged.
	}
	return s.catalog.Update(ctx, userID, id, fields)
}

// DeleteExercise removes the exercise and, if it has one, its equipment photo. A failure to remove the photo is
// only logged.
func (s *Service) DeleteExercise(ctx context.Context, id string) error {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return err //nolint:wrapcheck // auth errors are propagated unchanged.
	}
	deleted, err := s.catalog.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	s.deletePhoto(ctx, deleted.EquipmentPhotoKey)
	return nil
}

func (s *Service) deletePhoto(ctx context.Context, key string) {
	if key == "" || s.photos == nil {
		return
	}
	if err := s.photos.Delete(ctx, key); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to delete equipment photo",
			slog.String("key", key), slog.Any("error", err))
	}
}

// PhotoUploadURL points the exercise to a new photo key and returns a presigned URL for uploading the photo.
// The previous photo is removed.
func (s *Service) PhotoUploadURL(ctx context.Context, exerciseID string) (string, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return "", err //nolint:wrapcheck // auth errors are propagated unchanged.
	}
	if s.photos == nil {
		return "", ErrPhotosUnavailable
	}
	previous, err := s.catalog.Get(ctx, userID, exerciseID)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("exercises/%s/%s/%s", userID, exerciseID, uuid.NewString())
	url, err := s.photos.PresignUpload(ctx, key)
	if err != nil {
		return "", fmt.Errorf("presign upload: %w", err)
	}
	if _, err = s.catalog.SetPhotoKey(ctx, userID, exerciseID, key); err != nil {
		return "", err
	}
	s.deletePhoto(ctx, previous.EquipmentPhotoKey)
	return url, nil
}

// PhotoURL returns a presigned download URL of the exercise's equipment photo.
func (s *Service) PhotoURL(ctx context.Context, exerciseID string) (string, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return "", err //nolint:wrapcheck // auth errors are propagated unchanged.
	}
	if s.photos == nil {
		return "", ErrPhotosUnavailable
	}
	exercise, err := s.catalog.Get(ctx, userID, exerciseID)
	if err != nil {
		return "", err
	}
	if exercise.EquipmentPhotoKey == "" {
		return "", fmt.Errorf("photo of exercise %s: %w", exerciseID, ErrNotFound)
	}
	url, err := s.photos.PresignDownload(ctx, exercise.EquipmentPhotoKey)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return url, nil
}

func (s *Service) SuggestWeight(ctx context.Context, exerciseID string) (*float64, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck // auth errors are propagated unchanged.
	}
	return s.oracle.SuggestWeight(ctx, userID, exerciseID)
}

func (s *Service) GenerateWorkout(ctx context.Context, quotas []GroupQuota) ([]WorkoutExercise, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck // auth errors are propagated unchanged.
	}
	candidates, err := s.generator.Generate(ctx, userID, quotas)
	if err != nil {
		return nil, err
	}
	s.recorder.WorkoutGenerated(len(candidates))
	return candidates, nil
}

func (s *Service) ReplaceExercise(
	ctx context.Context,
	candidates []WorkoutExercise,
	targetID string,
) ([]WorkoutExercise, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck // auth errors are propagated unchanged.
	}
	return s.generator.Replace(ctx, userID, candidates, targetID)
}

func (s *Service) CommitWorkout(ctx context.Context, candidates []WorkoutExercise, groups []MuscleGroup) (Workout, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return Workout{}, err //nolint:wrapcheck // auth errors are propagated unchanged.
	}
	workout, err := s.generator.Commit(ctx, userID, candidates, groups)
	if err != nil {
		return Workout{}, err
	}
	s.recorder.WorkoutCommitted(len(workout.Exercises))
	return workout, nil
}

// StartOrResume returns a session handle of the current user's active workout.
func (s *Service) StartOrResume(ctx context.Context) (*Session, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck // auth errors are propagated unchanged.
	}
	return s.engine.StartOrResume(ctx, userID)
}

func (s *Service) Settings(ctx context.Context) (UserSettings, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return UserSettings{}, err //nolint:wrapcheck // auth errors are propagated unchanged.
	}
	return s.settings.Get(ctx, userID)
}

func (s *Service) SetBodyWeight(ctx context.Context, bodyWeight float64) (UserSettings, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return UserSettings{}, err //nolint:wrapcheck // auth errors are propagated unchanged.
	}
	return s.settings.SetBodyWeight(ctx, userID, bodyWeight)
}

func (s *Service) History(ctx context.Context) ([]Workout, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck // auth errors are propagated unchanged.
	}
	return s.history.List(ctx, userID)
}

func (s *Service) WorkoutDetail(ctx context.Context, workoutID string) (WorkoutDetail, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return WorkoutDetail{}, err //nolint:wrapcheck // auth errors are propagated unchanged.
	}
	return s.history.Detail(ctx, userID, workoutID)
}
