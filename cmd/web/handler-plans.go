package main

import (
	"net/http"

	"github.com/myrjola/liftplan/internal/workout"
)

type generateRequest struct {
	Quotas []workout.GroupQuota `json:"quotas"`
}

type candidatesResponse struct {
	Candidates []workout.WorkoutExercise `json:"candidates"`
}

func (app *application) plansGeneratePOST(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	candidates, err := app.service.GenerateWorkout(r.Context(), req.Quotas)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, candidatesResponse{Candidates: candidates})
}

type replaceRequest struct {
	Candidates []workout.WorkoutExercise `json:"candidates"`
	// TargetID is the id of the candidate to replace.
	TargetID string `json:"target_id"`
}

func (app *application) plansReplacePOST(w http.ResponseWriter, r *http.Request) {
	var req replaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	candidates, err := app.service.ReplaceExercise(r.Context(), req.Candidates, req.TargetID)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, candidatesResponse{Candidates: candidates})
}

type commitRequest struct {
	Candidates   []workout.WorkoutExercise `json:"candidates"`
	MuscleGroups []workout.MuscleGroup     `json:"muscle_groups"`
}

// plansCommitPOST persists the plan. The open session is dropped so that the next session request picks the new
// workout.
func (app *application) plansCommitPOST(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	committed, err := app.service.CommitWorkout(r.Context(), req.Candidates, req.MuscleGroups)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	if userID, idErr := app.currentUserID(r); idErr == nil {
		app.sessions.drop(userID)
	}
	writeJSON(w, http.StatusCreated, committed)
}
