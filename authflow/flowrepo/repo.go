package flowrepo

import (
	"errors"
	"time"

	"github.com/onboardhq/hr-assistant/msgraph"
)

// ErrFlowNotFound means the flow id was never issued, was already reaped, or
// is forged. Callers treat it as "start over", never as a fatal error.
var ErrFlowNotFound = errors.New("authentication flow not found")

// Session tracks one in-flight device flow so a stateless caller can poll it
// repeatedly by id.
type Session struct {
	Flow      *msgraph.DeviceFlow
	CreatedAt time.Time
}

// Expired reports whether the session outlived its descriptor's validity
// window.
func (s Session) Expired(now time.Time) bool {
	return now.Sub(s.CreatedAt) > time.Duration(s.Flow.ExpiresIn)*time.Second
}

type Repo interface {
	// Create stores the flow under a fresh unguessable id and returns it.
	Create(flow *msgraph.DeviceFlow) (string, error)
	// Get returns the session for an id, or ErrFlowNotFound.
	Get(id string) (Session, error)
	// Remove deletes the session, returning ErrFlowNotFound when it is
	// already gone. The check-and-delete is atomic: of two concurrent
	// removers exactly one succeeds.
	Remove(id string) error
	// ClearAll drops every in-flight session.
	ClearAll()
	// Sweep removes sessions past their validity window and returns how
	// many were dropped.
	Sweep() int
}
