// Package authflow lets a stateless request layer carry a multi-step device
// flow across independent requests by opaque flow id.
package authflow

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/onboardhq/hr-assistant/authflow/flowrepo"
	"github.com/onboardhq/hr-assistant/msgraph"
)

// Flows is the slice of the authenticator the service needs: starting a flow
// and advancing it one step.
type Flows interface {
	InitiateDeviceFlow(ctx context.Context) (*msgraph.DeviceFlow, error)
	PollDeviceFlow(ctx context.Context, flow *msgraph.DeviceFlow) msgraph.PollResult
}

// Service owns the in-flight device-flow sessions. Terminal polls reap their
// session so a flow id can never be replayed after completion.
type Service struct {
	flows Flows
	repo  flowrepo.Repo
}

func NewService(flows Flows, repo flowrepo.Repo) *Service {
	return &Service{flows: flows, repo: repo}
}

// Start initiates a new device flow and registers it for polling.
func (s *Service) Start(ctx context.Context) (string, *msgraph.DeviceFlow, error) {
	flow, err := s.flows.InitiateDeviceFlow(ctx)
	if err != nil {
		return "", nil, err
	}

	id, err := s.repo.Create(flow)
	if err != nil {
		return "", nil, err
	}
	return id, flow, nil
}

// Poll advances the flow with the given id by one step. Unknown ids yield
// StatusNotFound, which is distinct from pending: the caller must start over.
// On any terminal result the session is removed; when a concurrent poll got
// there first the loser deterministically sees StatusNotFound too.
func (s *Service) Poll(ctx context.Context, flowID string) msgraph.PollResult {
	session, err := s.repo.Get(flowID)
	if err != nil {
		return notFoundResult()
	}

	if session.Expired(time.Now().UTC()) {
		// Never polled to completion and past its window; reap it without a
		// network call.
		if err := s.repo.Remove(flowID); err != nil {
			return notFoundResult()
		}
		return msgraph.PollResult{
			Status:           msgraph.StatusExpired,
			ErrorCode:        "expired_token",
			ErrorDescription: "The authentication code has expired. Please start a new authentication flow.",
		}
	}

	result := s.flows.PollDeviceFlow(ctx, session.Flow)
	if !result.Terminal() {
		return result
	}

	if err := s.repo.Remove(flowID); err != nil {
		if errors.Is(err, flowrepo.ErrFlowNotFound) {
			// A concurrent poll observed the terminal result and reaped
			// the session first.
			return notFoundResult()
		}
		log.Error().Err(err).Str("flow_id", flowID).Msg("failed to reap flow session")
	}
	return result
}

// ClearAll drops every in-flight session. Used on logout and whenever an
// already-authenticated check supersedes pending flows.
func (s *Service) ClearAll() {
	s.repo.ClearAll()
}

// Sweep reaps sessions past their validity window.
func (s *Service) Sweep() {
	if n := s.repo.Sweep(); n > 0 {
		log.Debug().Int("removed", n).Msg("swept expired auth flow sessions")
	}
}

// RunSweeper periodically sweeps until the context is canceled.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func notFoundResult() msgraph.PollResult {
	return msgraph.PollResult{
		Status:           msgraph.StatusNotFound,
		ErrorCode:        "flow_not_found",
		ErrorDescription: "Authentication flow not found. Please initiate a new flow.",
	}
}
