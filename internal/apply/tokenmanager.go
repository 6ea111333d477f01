// tokenmanager.go — per-session bijective token <-> original maps.
//
// Directly ported from the teacher's sessions map[string]map[string]string
// / sessionMu sync.RWMutex pair in anonymizer.go, with session IDs
// generated via google/uuid rather than passed in from an upstream HTTP
// request ID, since the orchestrator here has no inbound request to key
// off of.
package apply

import (
	"sync"

	"github.com/google/uuid"
)

// TokenManager holds one token->original map per session, guarded by a
// single RWMutex (grounded on the teacher's sessionMu).
type TokenManager struct {
	mu       sync.RWMutex
	sessions map[string]map[string]string // sessionID -> token -> original
}

// NewTokenManager returns an empty TokenManager.
func NewTokenManager() *TokenManager {
	return &TokenManager{sessions: make(map[string]map[string]string)}
}

// NewSession allocates a fresh session ID and an empty token map for it.
func (tm *TokenManager) NewSession() string {
	id := uuid.NewString()
	tm.mu.Lock()
	tm.sessions[id] = make(map[string]string)
	tm.mu.Unlock()
	return id
}

// Record stores token -> original under sessionID, creating the session's
// map lazily if NewSession was not called first.
func (tm *TokenManager) Record(sessionID, token, original string) {
	if sessionID == "" {
		return
	}
	tm.mu.Lock()
	if tm.sessions[sessionID] == nil {
		tm.sessions[sessionID] = make(map[string]string)
	}
	tm.sessions[sessionID][token] = original
	tm.mu.Unlock()
}

// Snapshot returns a copy of sessionID's token map. A copy is returned
// (rather than the live map) so callers can range over it without holding
// tm's lock.
func (tm *TokenManager) Snapshot(sessionID string) map[string]string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	src := tm.sessions[sessionID]
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Count returns the number of tokens recorded for sessionID.
func (tm *TokenManager) Count(sessionID string) int {
	tm.mu.RLock()
	n := len(tm.sessions[sessionID])
	tm.mu.RUnlock()
	return n
}

// DeleteSession discards sessionID's token map.
func (tm *TokenManager) DeleteSession(sessionID string) {
	tm.mu.Lock()
	delete(tm.sessions, sessionID)
	tm.mu.Unlock()
}
