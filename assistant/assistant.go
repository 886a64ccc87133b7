// Package assistant is the chat orchestration layer: it turns message history
// into a reply, consulting the HR knowledge base and the user's calendar
// through tool calls.
package assistant

import (
	"context"
	"errors"
)

// ErrNotReady means the assistant is not configured (missing model settings).
var ErrNotReady = errors.New("assistant not initialized")

// Message is one turn of the conversation as the HTTP layer sees it.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Assistant produces a reply for a message given prior history.
type Assistant interface {
	Reply(ctx context.Context, history []Message, message string) (string, error)
}
