package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/onboardhq/hr-assistant/assistant"
)

type chatRequest struct {
	Message string              `json:"message"`
	History []assistant.Message `json:"history"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// ChatHandler runs one turn of the assistant conversation.
func (s *Server) ChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.agent == nil {
			writeError(w, http.StatusServiceUnavailable, "Assistant is not configured")
			return
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}

		reply, err := s.agent.Reply(r.Context(), req.History, req.Message)
		if err != nil {
			log.Error().Err(err).Msg("assistant reply failed")
			writeError(w, http.StatusInternalServerError, "Failed to generate a response")
			return
		}

		writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
	}
}
