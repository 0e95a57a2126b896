package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rocketscienceinc/guessgame-backend/internal/apperror"
	"github.com/rocketscienceinc/guessgame-backend/internal/entity"
)

type memorySession struct {
	mu       sync.Mutex
	sessions map[string]*entity.Session

	ttl time.Duration
	now func() time.Time
}

// NewMemorySessionRepository keeps sessions in process memory. Used when the
// tree lives in sqlite and no redis is configured. Sessions idle for longer
// than ttl are dropped; a zero ttl keeps them forever.
func NewMemorySessionRepository(ttl time.Duration) SessionRepository {
	return &memorySession{
		sessions: make(map[string]*entity.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (that *memorySession) Save(_ context.Context, session *entity.Session) error {
	now := that.now().UTC()
	session.UpdatedAt = now

	that.mu.Lock()
	defer that.mu.Unlock()

	that.prune(now)
	that.sessions[session.ID] = cloneSession(session)

	return nil
}

func (that *memorySession) GetByID(_ context.Context, id string) (*entity.Session, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[id]
	if !ok {
		return nil, apperror.ErrSessionNotFound
	}

	if that.expired(session, that.now().UTC()) {
		delete(that.sessions, id)
		return nil, apperror.ErrSessionNotFound
	}

	return cloneSession(session), nil
}

func (that *memorySession) DeleteByID(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.sessions[id]; !ok {
		return apperror.ErrSessionNotFound
	}

	delete(that.sessions, id)

	return nil
}

// prune drops expired sessions. Callers hold mu.
func (that *memorySession) prune(now time.Time) {
	if that.ttl <= 0 {
		return
	}

	for id, session := range that.sessions {
		if that.expired(session, now) {
			delete(that.sessions, id)
		}
	}
}

func (that *memorySession) expired(session *entity.Session, now time.Time) bool {
	return that.ttl > 0 && now.Sub(session.UpdatedAt) > that.ttl
}

func cloneSession(session *entity.Session) *entity.Session {
	copied := *session
	copied.History = slices.Clone(session.History)

	return &copied
}
