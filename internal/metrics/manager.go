// Package metrics exposes Prometheus metrics about requests and training activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "liftplan"

// Manager holds the collectors. A nil *Manager records nothing.
type Manager struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	panics          prometheus.Counter

	workoutsGenerated prometheus.Counter
	workoutsCommitted prometheus.Counter
	plannedExercises  prometheus.Histogram
	progressSaved     *prometheus.CounterVec
	workoutsCompleted prometheus.Counter
	weightLifted      prometheus.Counter
	repsCompleted     prometheus.Counter
	workoutDuration   prometheus.Histogram
}

func NewManager(reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)
	return &Manager{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "The total number of handled requests",
		}, []string{"method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		panics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "panics_total",
			Help:      "The total number of recovered handler panics",
		}),
		workoutsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workouts_generated_total",
			Help:      "The total number of generated workout plans",
		}),
		workoutsCommitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workouts_committed_total",
			Help:      "The total number of saved workout plans",
		}),
		plannedExercises: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workout_exercises",
			Help:      "Number of exercises in saved workout plans",
			Buckets:   prometheus.LinearBuckets(1, 2, 10), //nolint:mnd // 1..19 exercises.
		}),
		progressSaved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exercise_progress_saved_total",
			Help:      "The total number of saved exercise logs",
		}, []string{"weight_achieved"}),
		workoutsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workouts_completed_total",
			Help:      "The total number of completed workouts",
		}),
		weightLifted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weight_lifted_kilograms_total",
			Help:      "Total effective weight lifted in completed workouts",
		}),
		repsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reps_completed_total",
			Help:      "Total repetitions in completed workouts",
		}),
		workoutDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workout_duration_seconds",
			Help:      "Duration of completed workouts in seconds",
			Buckets:   []float64{600, 1200, 1800, 2700, 3600, 5400, 7200, 10800},
		}),
	}
}

// ObserveRequest records one handled request.
func (m *Manager) ObserveRequest(method string, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, status).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (m *Manager) RecoveredPanic() {
	if m == nil {
		return
	}
	m.panics.Inc()
}

func (m *Manager) WorkoutGenerated(int) {
	if m == nil {
		return
	}
	m.workoutsGenerated.Inc()
}

func (m *Manager) WorkoutCommitted(exercises int) {
	if m == nil {
		return
	}
	m.workoutsCommitted.Inc()
	m.plannedExercises.Observe(float64(exercises))
}

func (m *Manager) ProgressSaved(weightAchieved bool) {
	if m == nil {
		return
	}
	label := "false"
	if weightAchieved {
		label = "true"
	}
	m.progressSaved.WithLabelValues(label).Inc()
}

func (m *Manager) WorkoutCompleted(weightLifted float64, volume int, duration time.Duration) {
	if m == nil {
		return
	}
	m.workoutsCompleted.Inc()
	if weightLifted > 0 {
		m.weightLifted.Add(weightLifted)
	}
	m.repsCompleted.Add(float64(volume))
	if duration > 0 {
		m.workoutDuration.Observe(duration.Seconds())
	}
}
