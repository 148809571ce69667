package whatsapp

import (
	"sync"
	"time"
)

// sessionTTL bounds how long a flock selection is remembered.
const sessionTTL = 7 * 24 * time.Hour

type session struct {
	flockID   string
	updatedAt time.Time
}

// SessionManager remembers each sender's selected flock.
type SessionManager struct {
	sessions map[string]session
	mu       sync.RWMutex
	now      func() time.Time
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]session),
		now:      time.Now,
	}
}

// ActiveFlock returns the flock selected by a sender, if still fresh.
func (sm *SessionManager) ActiveFlock(userID string) (string, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	state, exists := sm.sessions[userID]
	if !exists || sm.now().Sub(state.updatedAt) > sessionTTL {
		return "", false
	}
	return state.flockID, true
}

// SetActiveFlock records the sender's flock selection.
func (sm *SessionManager) SetActiveFlock(userID, flockID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[userID] = session{flockID: flockID, updatedAt: sm.now()}
}

// ClearSession removes a user's session.
func (sm *SessionManager) ClearSession(userID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, userID)
}
