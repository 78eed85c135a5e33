package infrastructure

import (
	"sync"
	"time"
)

const defaultDebounce = 2 * time.Second

// ChatSession tracks the question in flight for one chat
type ChatSession struct {
	ChatID     int64
	processing bool
	lastStart  time.Time
}

// SessionManager enforces one question at a time per chat plus a short
// debounce against repeated button taps.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[int64]*ChatSession
	debounce time.Duration
	now      func() time.Time
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[int64]*ChatSession),
		debounce: defaultDebounce,
		now:      time.Now,
	}
}

// TryStart marks chatID busy; false means a question is in flight or the
// previous one started within the debounce window.
func (sm *SessionManager) TryStart(chatID int64) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	s, ok := sm.sessions[chatID]
	if !ok {
		s = &ChatSession{ChatID: chatID}
		sm.sessions[chatID] = s
	}

	now := sm.now()
	if s.processing || (!s.lastStart.IsZero() && now.Sub(s.lastStart) < sm.debounce) {
		return false
	}
	s.processing = true
	s.lastStart = now
	return true
}

func (sm *SessionManager) Finish(chatID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if s, ok := sm.sessions[chatID]; ok {
		s.processing = false
	}
}

func (sm *SessionManager) Busy(chatID int64) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	s, ok := sm.sessions[chatID]
	return ok && s.processing
}
