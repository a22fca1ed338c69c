package main

import (
	"net/http"

	"github.com/myrjola/liftplan/internal/workout"
)

type historyResponse struct {
	Workouts []workout.Workout `json:"workouts"`
	Summary  historySummary    `json:"summary"`
}

type historySummary struct {
	Workouts          int     `json:"workouts"`
	TotalDurationSecs float64 `json:"total_duration_seconds"`
	TotalWeightLifted float64 `json:"total_weight_lifted"`
	TotalVolume       int     `json:"total_volume"`
}

func toHistorySummary(s workout.Summary) historySummary {
	return historySummary{
		Workouts:          s.Workouts,
		TotalDurationSecs: s.TotalDuration.Seconds(),
		TotalWeightLifted: s.TotalWeightLifted,
		TotalVolume:       s.TotalVolume,
	}
}

func (app *application) historyGET(w http.ResponseWriter, r *http.Request) {
	workouts, err := app.service.History(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	if workouts == nil {
		workouts = []workout.Workout{}
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Workouts: workouts,
		Summary:  toHistorySummary(workout.Summarize(workouts)),
	})
}

type workoutDetailResponse struct {
	Workout    workout.Workout `json:"workout"`
	BodyWeight float64         `json:"body_weight"`
	// DurationSecs is zero when the workout was never started.
	DurationSecs float64 `json:"duration_seconds"`
}

func (app *application) historyWorkoutGET(w http.ResponseWriter, r *http.Request) {
	detail, err := app.service.WorkoutDetail(r.Context(), r.PathValue("workoutID"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, workoutDetailResponse{
		Workout:      detail.Workout,
		BodyWeight:   detail.BodyWeight,
		DurationSecs: detail.Workout.Duration().Seconds(),
	})
}
