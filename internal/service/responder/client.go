// Package responder wraps the external text-generation capability the
// reflection pipeline depends on. The rest of the system only sees the Client
// interface; failure and latency are owned here.
package responder

import (
	"context"
	"errors"

	"github.com/medlens/reflection/backend/internal/model/reflection"
)

var (
	// ErrUnavailable indicates a transport or auth failure talking to the model.
	ErrUnavailable = errors.New("responder unavailable")
	// ErrTimeout indicates the bounded wait for a response expired.
	ErrTimeout = errors.New("responder timed out")
)

// Request carries everything a single generation call needs. Query is the
// user-facing input for this call; Turns is the conversation so far, giving
// discussion personas cumulative memory.
type Request struct {
	Agent reflection.Agent
	Round int
	Query string
	Turns []reflection.ConversationTurn
}

// Client produces free text for a role, context and round.
type Client interface {
	Ask(ctx context.Context, req Request) (string, error)
}
