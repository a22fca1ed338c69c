package main

import (
	"net/http"
)

func (app *application) settingsGET(w http.ResponseWriter, r *http.Request) {
	settings, err := app.service.Settings(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type settingsRequest struct {
	BodyWeight float64 `json:"body_weight"`
}

func (app *application) settingsPUT(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	settings, err := app.service.SetBodyWeight(r.Context(), req.BodyWeight)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
