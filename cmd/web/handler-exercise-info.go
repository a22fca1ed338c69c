package main

import (
	"net/http"

	"github.com/myrjola/liftplan/internal/errors"
	"github.com/myrjola/liftplan/internal/workout"
)

// exerciseInfoTemplateData contains data for the exercise info template.
type exerciseInfoTemplateData struct {
	BaseTemplateData
	Exercise        workout.Exercise
	SuggestedWeight *float64
}

// exerciseInfoGET renders the technique description and equipment notes of an exercise.
func (app *application) exerciseInfoGET(w http.ResponseWriter, r *http.Request) {
	exercise, err := app.service.GetExercise(r.Context(), r.PathValue("id"))
	if errors.Is(err, workout.ErrNotFound) {
		app.notFound(w, r)
		return
	}
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	suggested, err := app.service.SuggestWeight(r.Context(), exercise.ID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	data := exerciseInfoTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Exercise:         exercise,
		SuggestedWeight:  suggested,
	}

	app.render(w, r, http.StatusOK, "exercise-info", data)
}
