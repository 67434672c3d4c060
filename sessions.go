package main

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/cdrr_triage/workflow"
)

// sessionRegistry hands each session token its own query orchestrator, so
// query state, selection, and the stale-response guard are scoped the way the
// view is. Idle sessions are pruned lazily.
type sessionRegistry struct {
	store  workflow.Store
	logger *logrus.Logger

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	orchestrator *workflow.Orchestrator
	lastSeen     time.Time
}

const sessionIdleTTL = time.Hour

func newSessionRegistry(store workflow.Store, logger *logrus.Logger) *sessionRegistry {
	return &sessionRegistry{
		store:    store,
		logger:   logger,
		sessions: map[string]*sessionEntry{},
	}
}

func (r *sessionRegistry) get(token string) *workflow.Orchestrator {
	if token == "" {
		// Anonymous callers get throwaway state: nothing may persist (or be
		// shared) between requests that carry no session.
		return workflow.NewOrchestrator(r.store, r.logger)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for key, entry := range r.sessions {
		if now.Sub(entry.lastSeen) > sessionIdleTTL {
			delete(r.sessions, key)
		}
	}

	entry, ok := r.sessions[token]
	if !ok {
		entry = &sessionEntry{orchestrator: workflow.NewOrchestrator(r.store, r.logger)}
		r.sessions[token] = entry
	}
	entry.lastSeen = now
	return entry.orchestrator
}
