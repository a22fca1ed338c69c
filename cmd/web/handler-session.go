package main

import (
	"net/http"

	"github.com/myrjola/liftplan/internal/contexthelpers"
	"github.com/myrjola/liftplan/internal/errors"
	"github.com/myrjola/liftplan/internal/identity"
	"github.com/myrjola/liftplan/internal/workout"
)

func (app *application) currentUserID(r *http.Request) (string, error) {
	if !contexthelpers.IsAuthenticated(r.Context()) {
		return "", identity.ErrUnauthenticated
	}
	return contexthelpers.AuthenticatedUserID(r.Context()), nil
}

// session returns the open session of the current user, starting or resuming the latest workout when needed.
func (app *application) session(r *http.Request) (*workout.Session, error) {
	userID, err := app.currentUserID(r)
	if err != nil {
		return nil, err
	}
	return app.sessions.get(r.Context(), userID, app.service.StartOrResume)
}

func (app *application) sessionGET(w http.ResponseWriter, r *http.Request) {
	s, err := app.session(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

type weightRequest struct {
	Weight float64 `json:"weight"`
}

func (app *application) sessionWeightPUT(w http.ResponseWriter, r *http.Request) {
	var req weightRequest
	if err := decodeJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	s, err := app.session(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	if err = s.SetWeight(r.PathValue("exerciseID"), req.Weight); err != nil {
		app.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (app *application) sessionSetTogglePOST(w http.ResponseWriter, r *http.Request) {
	setIndex, err := setIndexParam(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	s, err := app.session(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	if err = s.ToggleSetCompleted(r.PathValue("exerciseID"), setIndex); err != nil {
		app.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

// repsRequest either sets the reps or steps them by Delta.
type repsRequest struct {
	Reps  *int `json:"reps"`
	Delta int  `json:"delta"`
}

func (app *application) sessionSetRepsPUT(w http.ResponseWriter, r *http.Request) {
	setIndex, err := setIndexParam(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	var req repsRequest
	if err = decodeJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	if req.Reps == nil && req.Delta == 0 {
		app.handleError(w, r, &workout.ValidationError{Field: "reps", Reason: "either reps or delta is required"})
		return
	}
	s, err := app.session(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	exerciseID := r.PathValue("exerciseID")
	if req.Reps != nil {
		err = s.SetReps(exerciseID, setIndex, *req.Reps)
	} else {
		err = s.StepReps(exerciseID, setIndex, req.Delta)
	}
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (app *application) sessionSavePOST(w http.ResponseWriter, r *http.Request) {
	s, err := app.session(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	log, err := s.SaveProgress(r.Context(), r.PathValue("exerciseID"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

func (app *application) sessionWeightAchievedPOST(w http.ResponseWriter, r *http.Request) {
	s, err := app.session(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	log, err := s.MarkWeightAchieved(r.Context(), r.PathValue("exerciseID"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

// sessionCompletePOST finishes the workout. On failure the session stays open with its unsaved changes.
func (app *application) sessionCompletePOST(w http.ResponseWriter, r *http.Request) {
	userID, err := app.currentUserID(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	s, err := app.session(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	completed, err := s.Complete(r.Context())
	if errors.Is(err, workout.ErrSessionCompleted) {
		app.sessions.drop(userID)
	}
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.sessions.drop(userID)
	writeJSON(w, http.StatusOK, completed)
}
