package main

import (
	"context"
	"sync"

	"github.com/myrjola/liftplan/internal/workout"
)

// sessionRegistry keeps the open session handle of each user so that unsaved set changes survive between requests.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*workout.Session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		mu:       sync.Mutex{},
		sessions: make(map[string]*workout.Session),
	}
}

// get returns the cached session of userID or opens one with start.
func (sr *sessionRegistry) get(
	ctx context.Context,
	userID string,
	start func(context.Context) (*workout.Session, error),
) (*workout.Session, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if s, ok := sr.sessions[userID]; ok {
		return s, nil
	}
	s, err := start(ctx)
	if err != nil {
		return nil, err
	}
	sr.sessions[userID] = s
	return s, nil
}

// drop forgets the session of userID. The next get starts or resumes the latest workout again.
func (sr *sessionRegistry) drop(userID string) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	delete(sr.sessions, userID)
}
