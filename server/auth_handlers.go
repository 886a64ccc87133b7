package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/onboardhq/hr-assistant/msgraph"
)

// AuthInitiateHandler starts a device code flow. If a cached token can still
// be refreshed silently there is nothing to do and the caller is told so.
func (s *Server) AuthInitiateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.broker.IsAuthenticated(r.Context()) {
			s.flows.ClearAll()
			writeJSON(w, http.StatusOK, map[string]any{
				"status":  "authenticated",
				"message": "Already authenticated",
			})
			return
		}

		flowID, flow, err := s.flows.Start(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("device flow initiation failed")
			writeError(w, http.StatusInternalServerError, "Failed to initiate authentication flow")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":           "pending",
			"flow_id":          flowID,
			"user_code":        flow.UserCode,
			"verification_uri": flow.VerificationURI,
			"message":          flow.Message,
			"expires_in":       flow.ExpiresIn,
		})
	}
}

// AuthStatusHandler polls a pending device flow once and reports its state.
func (s *Server) AuthStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flowID := r.URL.Query().Get("flow_id")
		if flowID == "" {
			writeError(w, http.StatusBadRequest, "flow_id is required")
			return
		}

		// A silent token may have landed since the flow began (another tab,
		// or this flow's own completion); it supersedes pending flows.
		if s.broker.IsAuthenticated(r.Context()) {
			s.flows.ClearAll()
			writeJSON(w, http.StatusOK, map[string]any{
				"status":  "authenticated",
				"message": "Authentication successful",
			})
			return
		}

		result := s.flows.Poll(r.Context(), flowID)
		switch result.Status {
		case msgraph.StatusAuthenticated:
			writeJSON(w, http.StatusOK, map[string]any{
				"status":  "authenticated",
				"message": "Authentication successful",
			})
		case msgraph.StatusPending:
			writeJSON(w, http.StatusOK, map[string]any{
				"status":  "pending",
				"message": "Waiting for user to complete authentication",
			})
		case msgraph.StatusNotFound:
			writeError(w, http.StatusNotFound, result.ErrorDescription)
		default:
			// Expired, declined and malformed flows all report the same
			// error shape so clients can stop polling on a single branch.
			writeJSON(w, http.StatusOK, map[string]any{
				"status":            "error",
				"error":             result.ErrorCode,
				"error_description": result.ErrorDescription,
			})
		}
	}
}

// AuthCheckHandler reports whether a usable token is available without
// starting any flow.
func (s *Server) AuthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.broker.IsAuthenticated(r.Context()) {
			writeJSON(w, http.StatusOK, map[string]any{
				"status":        "authenticated",
				"authenticated": true,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":        "not_authenticated",
			"authenticated": false,
		})
	}
}

// AuthUserHandler returns the signed-in user's profile.
func (s *Server) AuthUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := s.graph.GetUserProfile(r.Context())
		if err != nil {
			if msgraph.IsAuthenticationRequired(err) {
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			log.Error().Err(err).Msg("failed to fetch user profile")
			writeError(w, http.StatusBadGateway, "Failed to fetch user profile")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status": "success",
			"user": map[string]any{
				"id":           profile.ID,
				"display_name": profile.DisplayName,
				"email":        profile.Email(),
			},
		})
	}
}

// AuthLogoutHandler clears the token cache and any in-flight device flows.
func (s *Server) AuthLogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.flows.ClearAll()
		if err := s.broker.Logout(); err != nil {
			log.Error().Err(err).Msg("logout failed")
			writeError(w, http.StatusInternalServerError, "Failed to clear credentials")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "success",
			"message": "Logged out successfully",
		})
	}
}
