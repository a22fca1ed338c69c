package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	var (
		shared = func(next http.Handler) http.Handler {
			return app.logAndTraceRequest(secureHeaders(app.crossOriginProtection(
				commonContext(app.timeout(next)))))
		}
		noAuth = func(next http.Handler) http.Handler {
			return app.recoverPanic(shared(next))
		}
		session = func(next http.Handler) http.Handler {
			return app.recoverPanic(noCache(app.sessionManager.LoadAndSave(
				app.webAuthnHandler.AuthenticateMiddleware(shared(next)))))
		}
		mustSession = func(next http.Handler) http.Handler {
			return session(app.mustAuthenticate(next))
		}
		mustPage = func(next http.Handler) http.Handler {
			return session(app.mustAuthenticatePage(next))
		}
	)

	mux.Handle("GET /api/healthy", noAuth(http.HandlerFunc(app.healthy)))
	mux.Handle("GET /metrics", noAuth(promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))) //nolint:exhaustruct // defaults.

	mux.Handle("POST /api/registration/start", session(http.HandlerFunc(app.beginRegistration)))
	mux.Handle("POST /api/registration/finish", session(http.HandlerFunc(app.finishRegistration)))
	mux.Handle("POST /api/login/start", session(http.HandlerFunc(app.beginLogin)))
	mux.Handle("POST /api/login/finish", session(http.HandlerFunc(app.finishLogin)))
	mux.Handle("POST /api/logout", session(http.HandlerFunc(app.logout)))

	mux.Handle("GET /api/exercises", mustSession(http.HandlerFunc(app.exercisesGET)))
	mux.Handle("POST /api/exercises", mustSession(http.HandlerFunc(app.exercisesPOST)))
	mux.Handle("GET /api/exercises/{id}", mustSession(http.HandlerFunc(app.exerciseGET)))
	mux.Handle("PUT /api/exercises/{id}", mustSession(http.HandlerFunc(app.exercisePUT)))
	mux.Handle("DELETE /api/exercises/{id}", mustSession(http.HandlerFunc(app.exerciseDELETE)))
	mux.Handle("GET /api/exercises/{id}/suggested-weight",
		mustSession(http.HandlerFunc(app.exerciseSuggestedWeightGET)))
	mux.Handle("POST /api/exercises/{id}/photo", mustSession(http.HandlerFunc(app.exercisePhotoPOST)))
	mux.Handle("GET /api/exercises/{id}/photo", mustSession(http.HandlerFunc(app.exercisePhotoGET)))

	mux.Handle("POST /api/plans/generate", mustSession(http.HandlerFunc(app.plansGeneratePOST)))
	mux.Handle("POST /api/plans/replace", mustSession(http.HandlerFunc(app.plansReplacePOST)))
	mux.Handle("POST /api/plans/commit", mustSession(http.HandlerFunc(app.plansCommitPOST)))

	mux.Handle("GET /api/session", mustSession(http.HandlerFunc(app.sessionGET)))
	mux.Handle("PUT /api/session/exercises/{exerciseID}/weight", mustSession(http.HandlerFunc(app.sessionWeightPUT)))
	mux.Handle("POST /api/session/exercises/{exerciseID}/sets/{setIndex}/toggle",
		mustSession(http.HandlerFunc(app.sessionSetTogglePOST)))
	mux.Handle("PUT /api/session/exercises/{exerciseID}/sets/{setIndex}/reps",
		mustSession(http.HandlerFunc(app.sessionSetRepsPUT)))
	mux.Handle("POST /api/session/exercises/{exerciseID}/save", mustSession(http.HandlerFunc(app.sessionSavePOST)))
	mux.Handle("POST /api/session/exercises/{exerciseID}/weight-achieved",
		mustSession(http.HandlerFunc(app.sessionWeightAchievedPOST)))
	mux.Handle("POST /api/session/complete", mustSession(http.HandlerFunc(app.sessionCompletePOST)))

	mux.Handle("GET /api/history", mustSession(http.HandlerFunc(app.historyGET)))
	mux.Handle("GET /api/history/{workoutID}", mustSession(http.HandlerFunc(app.historyWorkoutGET)))
	mux.Handle("GET /api/settings", mustSession(http.HandlerFunc(app.settingsGET)))
	mux.Handle("PUT /api/settings", mustSession(http.HandlerFunc(app.settingsPUT)))

	mux.Handle("GET /exercises/{id}", mustPage(http.HandlerFunc(app.exerciseInfoGET)))
	mux.Handle("GET /{$}", session(http.HandlerFunc(app.home)))
	mux.Handle("/", session(http.HandlerFunc(app.notFound)))

	return mux
}
