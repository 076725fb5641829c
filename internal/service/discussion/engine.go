// Package discussion drives the multi-round turn-taking between the fixed
// personas and accumulates the conversation transcript.
package discussion

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/medlens/reflection/backend/internal/model/reflection"
	"github.com/medlens/reflection/backend/internal/service/responder"
	"github.com/medlens/reflection/backend/internal/service/session"
)

// Sink receives turns and progress events as the discussion produces them, so
// a concurrent event reader sees progress incrementally rather than batched.
type Sink interface {
	AppendTurn(turn reflection.ConversationTurn)
	AppendEvent(ev reflection.ProgressEvent)
}

// Engine runs the fixed-persona discussion loop.
type Engine struct {
	client responder.Client
}

// NewEngine creates a discussion engine on top of the given responder.
func NewEngine(client responder.Client) *Engine {
	return &Engine{client: client}
}

// Run executes maxRounds rounds of medical expert then engineer turns, each
// with the full transcript so far as context. A single responder failure
// aborts the run; completed turns stay recorded in the sink. Input is
// validated against the session bounds so the engine holds its contract even
// when called outside the pipeline.
func (e *Engine) Run(ctx context.Context, query string, maxRounds int, sink Sink) (reflection.DiscussionResult, error) {
	if strings.TrimSpace(query) == "" {
		return reflection.DiscussionResult{}, session.ErrEmptyQuery
	}
	if maxRounds < session.MinRounds || maxRounds > session.MaxRounds {
		return reflection.DiscussionResult{}, session.ErrInvalidRounds
	}

	var (
		conversation []reflection.ConversationTurn
		medical      []string
		engineering  []string
	)

	for round := 1; round <= maxRounds; round++ {
		for _, agent := range reflection.DiscussionAgents() {
			text, err := e.takeTurn(ctx, agent, round, query, conversation, sink)
			if err != nil {
				return reflection.DiscussionResult{}, fmt.Errorf("round %d %s turn: %w", round, agent, err)
			}

			turn := reflection.ConversationTurn{
				Round:     round,
				Agent:     agent,
				Text:      text,
				CreatedAt: time.Now().UTC(),
			}
			conversation = append(conversation, turn)
			sink.AppendTurn(turn)

			switch agent {
			case reflection.AgentMedicalExpert:
				medical = append(medical, text)
			case reflection.AgentEngineer:
				engineering = append(engineering, text)
			}
		}
	}

	log.Printf("[engine] discussion finished rounds=%d turns=%d", maxRounds, len(conversation))
	return reflection.DiscussionResult{
		Conversation:        conversation,
		MedicalInsights:     medical,
		EngineeringInsights: engineering,
		Rounds:              maxRounds,
	}, nil
}

// takeTurn brackets one responder call with thinking events.
func (e *Engine) takeTurn(ctx context.Context, agent reflection.Agent, round int, query string, prior []reflection.ConversationTurn, sink Sink) (string, error) {
	sink.AppendEvent(reflection.ProgressEvent{
		EventType: reflection.EventThinkingStarted,
		Agent:     agent,
		Data: map[string]any{
			"round":   round,
			"message": thinkingMessage(agent),
		},
		Timestamp: time.Now().UTC(),
	})

	text, err := e.client.Ask(ctx, responder.Request{
		Agent: agent,
		Round: round,
		Query: query,
		Turns: prior,
	})
	if err != nil {
		return "", err
	}

	sink.AppendEvent(reflection.ProgressEvent{
		EventType: reflection.EventThinkingCompleted,
		Agent:     agent,
		Data: map[string]any{
			"round":    round,
			"response": text,
		},
		Timestamp: time.Now().UTC(),
	})

	return text, nil
}

func thinkingMessage(agent reflection.Agent) string {
	switch agent {
	case reflection.AgentMedicalExpert:
		return "Medical expert is analyzing clinical needs and workflow problems..."
	case reflection.AgentEngineer:
		return "Engineer is analyzing technical solutions and system optimizations..."
	default:
		return "Thinking..."
	}
}
