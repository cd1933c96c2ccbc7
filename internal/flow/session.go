// Package flow owns the per-photo capture session: one explicitly
// constructed context object handed from the crop stage to the rating
// stage, replacing ambient process-wide slots. Starting a session for a
// new photo cancels the previous session's context and clears its
// suggestion cache before any new async work begins, so a slow in-flight
// fetch for the old photo can never surface under the new one.
package flow

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vinulakkur23/forkful-lite/internal/location"
)

// Session is the state for one capture-to-save flow. Created by
// Manager.Begin; superseded the instant a different photo enters the flow.
type Session struct {
	ID       string
	PhotoURI string

	ctx    context.Context
	cancel context.CancelFunc

	resolver *location.Resolver
	cache    *SuggestionCache

	warmed sync.Once
}

// Context is canceled when the session is superseded. Every outbound call
// made on behalf of this session must use it so in-flight requests abort
// instead of merely having their results discarded.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Resolver is the session's location candidate holder.
func (s *Session) Resolver() *location.Resolver {
	return s.resolver
}

// Cache is the session's suggestion cache.
func (s *Session) Cache() *SuggestionCache {
	return s.cache
}

// Active reports whether the session has not been superseded.
func (s *Session) Active() bool {
	return s.ctx.Err() == nil
}

// Manager tracks the single active session. Safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	active *Session
}

// NewManager returns a Manager with no active session.
func NewManager() *Manager {
	return &Manager{}
}

// Begin starts a session for the given photo URI. If the active session is
// already for this URI it is returned unchanged (fresh=false) so duplicate
// triggers are no-ops. Otherwise the old session is canceled and its cache
// cleared synchronously, before the new session exists — closing the window
// where a late fetch for photo A could land as the flow advances to photo B.
func (m *Manager) Begin(photoURI string) (sess *Session, fresh bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil && m.active.PhotoURI == photoURI {
		return m.active, false
	}

	if m.active != nil {
		m.active.cancel()
		m.active.cache.Clear()
		log.Debug().
			Str("session_id", m.active.ID).
			Str("photo_uri", m.active.PhotoURI).
			Msg("Session superseded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.active = &Session{
		ID:       uuid.NewString(),
		PhotoURI: photoURI,
		ctx:      ctx,
		cancel:   cancel,
		resolver: location.NewResolver(),
		cache:    &SuggestionCache{},
	}

	log.Debug().
		Str("session_id", m.active.ID).
		Str("photo_uri", photoURI).
		Msg("Session started")

	return m.active, true
}

// Active returns the current session, or nil if none has begun.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// IsActive reports whether the given session ID is still the active one.
// Async continuations that predate a session switch use this to discard
// their results.
func (m *Manager) IsActive(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil && m.active.ID == sessionID
}

// End cancels and drops the active session. Used on save completion and
// on explicit flow abandonment.
func (m *Manager) End() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		m.active.cancel()
		m.active.cache.Clear()
		m.active = nil
	}
}
