package main

import (
	"net/http"

	"github.com/myrjola/liftplan/internal/workout"
)

type homeTemplateData struct {
	BaseTemplateData
	Workouts   []workout.Workout
	Summary    workout.Summary
	BodyWeight float64
}

// home shows the passkey buttons to anonymous visitors and the workout history to logged-in users.
func (app *application) home(w http.ResponseWriter, r *http.Request) {
	data := homeTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Workouts:         nil,
		Summary:          workout.Summary{},
		BodyWeight:       0,
	}
	if !data.Authenticated {
		app.render(w, r, http.StatusOK, "home", data)
		return
	}

	workouts, err := app.service.History(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	settings, err := app.service.Settings(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	data.Workouts = workouts
	data.Summary = workout.Summarize(workouts)
	data.BodyWeight = settings.BodyWeight
	app.render(w, r, http.StatusOK, "home", data)
}
