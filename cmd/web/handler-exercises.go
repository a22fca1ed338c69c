package main

import (
	"net/http"

	"github.com/myrjola/liftplan/internal/workout"
)

func (app *application) exercisesGET(w http.ResponseWriter, r *http.Request) {
	exercises, err := app.service.ListExercises(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exercises)
}

func (app *application) exercisesPOST(w http.ResponseWriter, r *http.Request) {
	var fields workout.ExerciseFields
	if err := decodeJSON(w, r, &fields); err != nil {
		app.handleError(w, r, err)
		return
	}
	exercise, err := app.service.CreateExercise(r.Context(), fields)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exercise)
}

func (app *application) exerciseGET(w http.ResponseWriter, r *http.Request) {
	exercise, err := app.service.GetExercise(r.Context(), r.PathValue("id"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exercise)
}

func (app *application) exercisePUT(w http.ResponseWriter, r *http.Request) {
	var fields workout.ExerciseFields
	if err := decodeJSON(w, r, &fields); err != nil {
		app.handleError(w, r, err)
		return
	}
	exercise, err := app.service.UpdateExercise(r.Context(), r.PathValue("id"), fields)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exercise)
}

func (app *application) exerciseDELETE(w http.ResponseWriter, r *http.Request) {
	if err := app.service.DeleteExercise(r.Context(), r.PathValue("id")); err != nil {
		app.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type suggestedWeightResponse struct {
	// Weight is null when the exercise has never been logged.
	Weight *float64 `json:"weight"`
}

func (app *application) exerciseSuggestedWeightGET(w http.ResponseWriter, r *http.Request) {
	weight, err := app.service.SuggestWeight(r.Context(), r.PathValue("id"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestedWeightResponse{Weight: weight})
}

type photoURLResponse struct {
	URL string `json:"url"`
}

// exercisePhotoPOST returns a presigned URL the client uploads the equipment photo to.
func (app *application) exercisePhotoPOST(w http.ResponseWriter, r *http.Request) {
	url, err := app.service.PhotoUploadURL(r.Context(), r.PathValue("id"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, photoURLResponse{URL: url})
}

func (app *application) exercisePhotoGET(w http.ResponseWriter, r *http.Request) {
	url, err := app.service.PhotoURL(r.Context(), r.PathValue("id"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, photoURLResponse{URL: url})
}
