package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cexll/redesign/internal/feedback"
)

var (
	// ErrNotFound indicates no session has the requested id.
	ErrNotFound = errors.New("session not found")
	// ErrInactive indicates the session has ended and no longer accepts annotations.
	ErrInactive = errors.New("session is not active")
	// ErrAnnotationNotFound indicates the session holds no annotation with the requested id.
	ErrAnnotationNotFound = errors.New("annotation not found")
	// ErrTooManySessions indicates the store is full of active sessions.
	ErrTooManySessions = errors.New("too many active sessions")
)

// Session collects annotations from the annotation UI until it is exported.
type Session struct {
	ID          string                `json:"id"`
	StartedAt   time.Time             `json:"startedAt"`
	EndedAt     *time.Time            `json:"endedAt,omitempty"`
	Annotations []feedback.Annotation `json:"annotations"`
	IsActive    bool                  `json:"isActive"`
}

// Store keeps sessions in memory.
type Store struct {
	mu             sync.RWMutex
	sessions       map[string]*Session
	maxAnnotations int
	maxSessions    int
	now            func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxSessions caps how many sessions the store holds. When full, the
// session that ended earliest is dropped to make room; if every session is
// still active, Start fails with ErrTooManySessions. 0 means no cap.
func WithMaxSessions(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// NewStore creates a store. maxAnnotations caps each session; 0 means no cap.
func NewStore(maxAnnotations int, opts ...Option) *Store {
	s := &Store{
		sessions:       make(map[string]*Session),
		maxAnnotations: maxAnnotations,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a new active session.
func (s *Store) Start() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		if !s.evictEndedLocked() {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManySessions, s.maxSessions)
		}
	}
	sess := &Session{
		ID:          "session-" + uuid.NewString(),
		StartedAt:   s.now(),
		Annotations: []feedback.Annotation{},
		IsActive:    true,
	}
	s.sessions[sess.ID] = sess
	return sess.snapshot(), nil
}

func (s *Store) evictEndedLocked() bool {
	var oldest *Session
	for _, sess := range s.sessions {
		if sess.IsActive {
			continue
		}
		if oldest == nil || sess.EndedAt.Before(*oldest.EndedAt) {
			oldest = sess
		}
	}
	if oldest == nil {
		return false
	}
	delete(s.sessions, oldest.ID)
	return true
}

// Len returns the number of sessions held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Get returns a copy of the session.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess.snapshot(), nil
}

// List returns copies of all sessions, newest first.
func (s *Store) List() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess.snapshot())
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})
	return sessions
}

// AddAnnotation appends an annotation to an active session. Missing ids and
// timestamps are filled in.
func (s *Store) AddAnnotation(id string, a feedback.Annotation) (feedback.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return feedback.Annotation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !sess.IsActive {
		return feedback.Annotation{}, ErrInactive
	}
	if s.maxAnnotations > 0 && len(sess.Annotations) >= s.maxAnnotations {
		return feedback.Annotation{}, fmt.Errorf("%w: limit is %d", feedback.ErrTooManyAnnotations, s.maxAnnotations)
	}

	if a.ID == "" {
		a.ID = "annotation-" + uuid.NewString()
	}
	if a.Timestamp.IsZero() && a.Timestamp.Raw == "" {
		a.Timestamp = feedback.Timestamp{Time: s.now()}
	}
	sess.Annotations = append(sess.Annotations, a)
	return a, nil
}

// RemoveAnnotation deletes one annotation from an active session.
func (s *Store) RemoveAnnotation(id, annotationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !sess.IsActive {
		return ErrInactive
	}
	for i, a := range sess.Annotations {
		if a.ID == annotationID {
			sess.Annotations = append(sess.Annotations[:i], sess.Annotations[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrAnnotationNotFound, annotationID)
}

// End deactivates a session. Ending an ended session is a no-op.
func (s *Store) End(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if sess.IsActive {
		now := s.now()
		sess.IsActive = false
		sess.EndedAt = &now
	}
	return sess.snapshot(), nil
}

func (s *Session) snapshot() *Session {
	cp := *s
	cp.Annotations = append([]feedback.Annotation(nil), s.Annotations...)
	if cp.Annotations == nil {
		cp.Annotations = []feedback.Annotation{}
	}
	if s.EndedAt != nil {
		ended := *s.EndedAt
		cp.EndedAt = &ended
	}
	return &cp
}
