package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/myrjola/liftplan/internal/contexthelpers"
	"github.com/myrjola/liftplan/internal/errors"
	"github.com/myrjola/liftplan/internal/identity"
	"github.com/myrjola/liftplan/internal/webauthnhandler"
	"github.com/myrjola/liftplan/internal/workout"
)

// maxBodyBytes bounds the size of JSON request bodies.
const maxBodyBytes = 1 << 20

var errInvalidPathValue = errors.NewSentinel("invalid path value")

type errorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &workout.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

func (app *application) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Field: "", TraceID: contexthelpers.TraceID(r.Context())})
}

// serverError logs err and answers 500. API callers get JSON and browsers get the error page.
func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	if strings.HasPrefix(r.URL.Path, "/api/") {
		app.writeError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	app.render(w, r, http.StatusInternalServerError, "error", newBaseTemplateData(r))
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusNotFound, "not-found", newBaseTemplateData(r))
}

// handleError maps the domain errors to HTTP status codes.
func (app *application) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *workout.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   validationErr.Error(),
			Field:   validationErr.Field,
			TraceID: contexthelpers.TraceID(r.Context()),
		})
	case errors.Is(err, identity.ErrUnauthenticated):
		app.writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, webauthnhandler.ErrCeremony):
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "passkey ceremony failed", errors.SlogError(err))
		app.writeError(w, r, http.StatusBadRequest, "passkey ceremony failed")
	case errors.Is(err, errInvalidPathValue),
		errors.Is(err, workout.ErrNotFound),
		errors.Is(err, workout.ErrNoActiveWorkout),
		errors.Is(err, workout.ErrPhotosUnavailable):
		app.writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, workout.ErrNoAlternatives),
		errors.Is(err, workout.ErrSessionCompleted),
		errors.Is(err, workout.ErrCannotMarkWeightAchieved):
		app.writeError(w, r, http.StatusConflict, err.Error())
	default:
		app.serverError(w, r, err)
	}
}

func setIndexParam(r *http.Request) (int, error) {
	setIndex, err := strconv.Atoi(r.PathValue("setIndex"))
	if err != nil || setIndex < 0 {
		return 0, errors.Wrap(errInvalidPathValue, "parse set index", slog.String("setIndex", r.PathValue("setIndex")))
	}
	return setIndex, nil
}

// redirect detects if the request is originating from a fetch API call or a top-level navigation and points the user
// to the correct URL.
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	if r.Header.Get("Sec-Fetch-Dest") == "empty" {
		w.Header().Set("Content-Location", path)
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, path, http.StatusSeeOther)
}
