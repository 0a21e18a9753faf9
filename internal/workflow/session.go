package workflow

import (
	"sync"

	"github.com/ygalaxyy/bookmarkbot/internal/record"
)

// Stage is the position of a conversation in the publication workflow.
type Stage string

const (
	StageIdle                      Stage = "idle"
	StageAwaitingLink              Stage = "awaiting_link"
	StageAwaitingDuplicateDecision Stage = "awaiting_duplicate_decision"
	StageAwaitingCategoryChoice    Stage = "awaiting_category_choice"
)

// Session is the in-memory state of one conversation.
type Session struct {
	Stage   Stage
	Pending *record.Record
}

// Sessions maps chat ids to sessions. The zero value is not usable; call
// NewSessions.
type Sessions struct {
	mu sync.Mutex
	m  map[int64]Session
}

// NewSessions returns an empty session store.
func NewSessions() *Sessions {
	return &Sessions{m: make(map[int64]Session)}
}

// Get returns the session for chatID. Unknown chats are Idle.
func (s *Sessions) Get(chatID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[chatID]
	if !ok {
		return Session{Stage: StageIdle}
	}
	return sess
}

// Hold parks rec in the given stage. The record is copied.
func (s *Sessions) Hold(chatID int64, stage Stage, rec record.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[chatID] = Session{Stage: stage, Pending: &rec}
}

// Clear returns chatID to Idle and drops its record. Clearing an absent
// session is a no-op.
func (s *Sessions) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, chatID)
}

// Len returns the number of non-idle sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
