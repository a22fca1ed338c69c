package workout

import (
	"slices"
	"time"
)

// MuscleGroup is the body region an exercise trains.
type MuscleGroup string

const (
	MuscleGroupChest     MuscleGroup = "chest"
	MuscleGroupBack      MuscleGroup = "back"
	MuscleGroupShoulders MuscleGroup = "shoulders"
	MuscleGroupBiceps    MuscleGroup = "biceps"
	MuscleGroupTriceps   MuscleGroup = "triceps"
	MuscleGroupLegs      MuscleGroup = "legs"
	MuscleGroupAbs       MuscleGroup = "abs"
	MuscleGroupForearms  MuscleGroup = "forearms"
)

//nolint:gochecknoglobals // closed enumeration.
var muscleGroups = []MuscleGroup{
	MuscleGroupChest,
	MuscleGroupBack,
	MuscleGroupShoulders,
	MuscleGroupBiceps,
	MuscleGroupTriceps,
	MuscleGroupLegs,
	MuscleGroupAbs,
	MuscleGroupForearms,
}

// MuscleGroups lists every muscle group in display order.
func MuscleGroups() []MuscleGroup {
	return slices.Clone(muscleGroups)
}

func (m MuscleGroup) Valid() bool {
	return slices.Contains(muscleGroups, m)
}

// WeightType determines how the weight entered for a set maps to the load used in statistics.
type WeightType string

const (
	// WeightTypeBodyweight exercises move the body weight only, e.g. push-ups.
	WeightTypeBodyweight WeightType = "bodyweight"
	// WeightTypeAdditional exercises add the entered weight on top of the body weight, e.g. weighted dips.
	WeightTypeAdditional WeightType = "additional"
	// WeightTypeAssisted exercises subtract the entered counterweight from the body weight, e.g. assisted pull-ups.
	WeightTypeAssisted WeightType = "assisted"
)

func (w WeightType) Valid() bool {
	switch w {
	case WeightTypeBodyweight, WeightTypeAdditional, WeightTypeAssisted:
		return true
	default:
		return false
	}
}

// ExerciseType classifies the training role of an exercise within a workout.
type ExerciseType string

const (
	ExerciseTypePrimary   ExerciseType = "primary"
	ExerciseTypeAuxiliary ExerciseType = "auxiliary"
	ExerciseTypeIsolation ExerciseType = "isolation"
)

// exerciseTypeOrder is the order in which the generator fills the quotas of a muscle group.
//
//nolint:gochecknoglobals // closed enumeration.
var exerciseTypeOrder = []ExerciseType{ExerciseTypePrimary, ExerciseTypeAuxiliary, ExerciseTypeIsolation}

func (e ExerciseType) Valid() bool {
	return slices.Contains(exerciseTypeOrder, e)
}

const (
	// DefaultSets is used when neither the workout nor the exercise specify a set count.
	DefaultSets = 3
	// DefaultReps is used when the exercise does not specify a rep count.
	DefaultReps = 10
	// DefaultBodyWeight is used until the user saves their body weight.
	DefaultBodyWeight = 70.0
)

// Exercise is a reusable movement definition owned by a user.
type Exercise struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	Name         string       `json:"name"`
	MuscleGroup  MuscleGroup  `json:"muscle_group"`
	WeightType   WeightType   `json:"weight_type"`
	ExerciseType ExerciseType `json:"exercise_type"`
	// Technique is a markdown description of how to perform the exercise.
	Technique         string    `json:"technique"`
	EquipmentName     string    `json:"equipment_name,omitempty"`
	EquipmentSettings string    `json:"equipment_settings,omitempty"`
	EquipmentPhotoKey string    `json:"equipment_photo_key,omitempty"`
	DefaultSets       int       `json:"default_sets"`
	DefaultReps       int       `json:"default_reps"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ExerciseFields are the user-editable attributes of an Exercise.
type ExerciseFields struct {
	Name              string       `json:"name"`
	MuscleGroup       MuscleGroup  `json:"muscle_group"`
	WeightType        WeightType   `json:"weight_type"`
	ExerciseType      ExerciseType `json:"exercise_type"`
	Technique         string       `json:"technique"`
	EquipmentName     string       `json:"equipment_name"`
	EquipmentSettings string       `json:"equipment_settings"`
	DefaultSets       int          `json:"default_sets"`
	DefaultReps       int          `json:"default_reps"`
}

// ExerciseLog records the performance of one exercise on one calendar date.
type ExerciseLog struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	ExerciseID string `json:"exercise_id"`
	// WeightUsed is the raw weight entered for the sets, not the effective load.
	WeightUsed    *float64 `json:"weight_used"`
	SetsCompleted int      `json:"sets_completed"`
	SetsPlanned   int      `json:"sets_planned"`
	RepsCompleted int      `json:"reps_completed"`
	RepsPlanned   int      `json:"reps_planned"`
	Completed     bool     `json:"completed"`
	// WeightAchieved asks for the weight to be increased the next time the exercise is planned.
	WeightAchieved bool      `json:"weight_achieved"`
	WorkoutDate    string    `json:"workout_date"`
	CreatedAt      time.Time `json:"created_at"`
}

// Workout is one generated and executed training session.
type Workout struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	Name              string            `json:"name"`
	MuscleGroups      []MuscleGroup     `json:"muscle_groups"`
	CreatedAt         time.Time         `json:"created_at"`
	StartTime         *time.Time        `json:"start_time"`
	EndTime           *time.Time        `json:"end_time"`
	CompletedAt       *time.Time        `json:"completed_at"`
	TotalWeightLifted *float64          `json:"total_weight_lifted"`
	TotalVolume       *int              `json:"total_volume"`
	UserWeight        *float64          `json:"user_weight"`
	Exercises         []WorkoutExercise `json:"exercises,omitempty"`
}

// Duration is the time between start and end, or zero if either is missing.
func (w Workout) Duration() time.Duration {
	if w.StartTime == nil || w.EndTime == nil {
		return 0
	}
	return w.EndTime.Sub(*w.StartTime)
}

// WorkoutExercise is one ordered exercise slot of a workout. Before commit it is a candidate with an empty
// WorkoutID.
type WorkoutExercise struct {
	ID              string   `json:"id"`
	WorkoutID       string   `json:"workout_id"`
	ExerciseID      string   `json:"exercise_id"`
	OrderIndex      int      `json:"order_index"`
	SetsPlanned     int      `json:"sets_planned"`
	WeightSuggested *float64 `json:"weight_suggested"`
	// Exercise is resolved from the catalog on read. It is nil when the exercise has been deleted.
	Exercise *Exercise `json:"exercise"`
}

// GroupQuota requests a number of exercises of each type for one muscle group.
type GroupQuota struct {
	MuscleGroup MuscleGroup `json:"muscle_group"`
	Primary     int         `json:"primary"`
	Auxiliary   int         `json:"auxiliary"`
	Isolation   int         `json:"isolation"`
}

func (q GroupQuota) count(t ExerciseType) int {
	switch t {
	case ExerciseTypePrimary:
		return q.Primary
	case ExerciseTypeAuxiliary:
		return q.Auxiliary
	case ExerciseTypeIsolation:
		return q.Isolation
	default:
		return 0
	}
}

// UserSettings holds the per-user profile.
type UserSettings struct {
	ID         string    `json:"id,omitempty"`
	UserID     string    `json:"user_id"`
	BodyWeight float64   `json:"body_weight"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
