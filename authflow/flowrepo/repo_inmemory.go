package flowrepo

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onboardhq/hr-assistant/msgraph"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo
// interface. Sessions live for at most one process lifetime.
type InMemoryRepo struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

// NewInMemoryRepo creates a new in-memory flow session repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

// Create stores a flow under a fresh UUIDv4 id. It also sweeps expired
// entries on the way in so abandoned flows cannot accumulate unbounded.
func (r *InMemoryRepo) Create(flow *msgraph.DeviceFlow) (string, error) {
	if flow == nil {
		return "", errors.New("flow cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked()

	id := uuid.NewString()
	r.sessions[id] = Session{Flow: flow, CreatedAt: r.now().UTC()}
	return id, nil
}

func (r *InMemoryRepo) Get(id string) (Session, error) {
	if id == "" {
		return Session{}, ErrFlowNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrFlowNotFound
	}
	return session, nil
}

// Remove deletes the session if it is still present. Exactly one of any
// number of concurrent removers for the same id observes success.
func (r *InMemoryRepo) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return ErrFlowNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *InMemoryRepo) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]Session)
}

func (r *InMemoryRepo) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked()
}

func (r *InMemoryRepo) sweepLocked() int {
	now := r.now().UTC()
	removed := 0
	for id, session := range r.sessions {
		if session.Expired(now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
