// Package needs turns a finished discussion transcript into structured need
// records through a final synthesis pass.
package needs

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/medlens/reflection/backend/internal/model/reflection"
	"github.com/medlens/reflection/backend/internal/service/responder"
)

// Sink receives the collector's progress events.
type Sink interface {
	AppendEvent(ev reflection.ProgressEvent)
}

// Collector runs the synthesis pass over a full conversation.
type Collector struct {
	client responder.Client
}

// NewCollector creates a collector on top of the given responder.
func NewCollector(client responder.Client) *Collector {
	return &Collector{client: client}
}

// Collect asks the responder to consolidate the discussion into need records.
// An unparseable or empty synthesis yields an empty list; only a responder
// failure is an error.
func (c *Collector) Collect(ctx context.Context, result reflection.DiscussionResult, sink Sink) ([]reflection.NeedRecord, error) {
	sink.AppendEvent(reflection.ProgressEvent{
		EventType: reflection.EventCollectingStarted,
		Agent:     reflection.AgentCollector,
		Data: map[string]any{
			"message": "Consolidating discussion into need records...",
		},
		Timestamp: time.Now().UTC(),
	})

	raw, err := c.client.Ask(ctx, responder.Request{
		Agent: reflection.AgentCollector,
		Query: synthesisQuery(result),
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis call: %w", err)
	}

	records := parseNeeds(raw)
	log.Printf("[collector] extracted %d needs from %d turns", len(records), len(result.Conversation))

	sink.AppendEvent(reflection.ProgressEvent{
		EventType: reflection.EventCollectingCompleted,
		Agent:     reflection.AgentCollector,
		Data: map[string]any{
			"count": len(records),
		},
		Timestamp: time.Now().UTC(),
	})

	return records, nil
}

// synthesisQuery renders the transcript for the collector role. Insights are
// grouped per persona before the full conversation so the model can attribute
// each need.
func synthesisQuery(result reflection.DiscussionResult) string {
	var b strings.Builder

	b.WriteString("Medical expert insights:\n")
	for _, insight := range result.MedicalInsights {
		b.WriteString(insight)
		b.WriteString("\n")
	}

	b.WriteString("\nEngineer insights:\n")
	for _, insight := range result.EngineeringInsights {
		b.WriteString(insight)
		b.WriteString("\n")
	}

	b.WriteString("\nFull conversation:\n")
	for _, turn := range result.Conversation {
		fmt.Fprintf(&b, "[round %d, %s] %s\n", turn.Round, turn.Agent, turn.Text)
	}

	b.WriteString("\nIdentify the distinct needs raised above and output them as a JSON array.")
	return b.String()
}
