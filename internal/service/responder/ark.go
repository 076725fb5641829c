package responder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/medlens/reflection/backend/internal/model/reflection"
	"github.com/medlens/reflection/backend/pkg/metrics"
)

// ArkClient implements Client on top of an eino chat chain backed by an Ark
// model. One compiled chain serves every role; the role only changes the
// system prompt.
type ArkClient struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	timeout time.Duration
}

// NewArkClient compiles the generation chain. timeout bounds every Ask call;
// zero disables the bound.
func NewArkClient(ctx context.Context, chatModel model.ChatModel, timeout time.Duration) (*ArkClient, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile responder chain: %w", err)
	}

	return &ArkClient{chain: runnable, timeout: timeout}, nil
}

// Ask runs one generation call for the requested role.
func (c *ArkClient) Ask(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	input := map[string]any{
		"system":  systemPrompt(req.Agent),
		"history": historyMessages(req.Turns),
		"query":   req.Query,
	}

	start := time.Now()
	response, err := c.chain.Invoke(ctx, input)
	metrics.ObserveResponderLatency(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			metrics.RecordResponderCall(string(req.Agent), "timeout")
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		metrics.RecordResponderCall(string(req.Agent), "error")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if response == nil {
		metrics.RecordResponderCall(string(req.Agent), "error")
		return "", fmt.Errorf("%w: empty model response", ErrUnavailable)
	}

	metrics.RecordResponderCall(string(req.Agent), "ok")
	log.Printf("[responder] agent=%s round=%d length=%d", req.Agent, req.Round, len(response.Content))
	return response.Content, nil
}

// historyMessages renders prior turns for the prompt. Each turn becomes an
// assistant message labeled with its speaker so either persona can follow the
// whole exchange.
func historyMessages(turns []reflection.ConversationTurn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		history = append(history, schema.AssistantMessage(fmt.Sprintf("[%s] %s", turn.Agent, turn.Text), nil))
	}
	return history
}
