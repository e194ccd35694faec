package llmclient

import (
	"context"

	"codedoc/internal/errors"
	"codedoc/internal/logging"
)

// FallbackChain is an ordered list of model configurations tried in
// sequence on failure. The primary model is Models[0].
type FallbackChain struct {
	Client *Client
	Models []string
	Logger *logging.Logger
}

// NewFallbackChain builds a chain backed by client, trying primary
// first and then each of fallbacks in order.
func NewFallbackChain(client *Client, primary string, fallbacks []string, log *logging.Logger) *FallbackChain {
	return &FallbackChain{
		Client: client,
		Models: append([]string{primary}, fallbacks...),
		Logger: log,
	}
}

// Complete tries each model in the chain in order, advancing past
// retryable failures. A non-retryable failure, or exhausting the
// chain, surfaces errors.ModelFatal.
func (f *FallbackChain) Complete(ctx context.Context, messages []Message, tools []ToolSpec, maxTokens int) (Message, string, error) {
	if len(f.Models) == 0 {
		return Message{}, "", errors.New(errors.ModelFatal, "fallback chain has no configured models")
	}

	var lastErr error
	for i, model := range f.Models {
		msg, err := f.Client.Complete(ctx, model, messages, tools, maxTokens)
		if err == nil {
			return msg, model, nil
		}

		// Only retryable failures (transport errors, 429, 5xx) advance
		// the chain; any other error aborts the call at once.
		lastErr = err
		if cde, ok := err.(*errors.CodeDocError); ok && cde.Code != errors.ModelUnavailable {
			return Message{}, "", errors.Wrap(errors.ModelFatal, "model "+model+" failed with a non-retryable error", err)
		}
		if f.Logger != nil {
			next := ""
			if i+1 < len(f.Models) {
				next = f.Models[i+1]
			}
			f.Logger.Warn("model call failed, advancing fallback chain", map[string]any{
				"model": model, "next": next, "error": err.Error(),
			})
		}
	}

	return Message{}, "", errors.Wrap(errors.ModelFatal, "fallback chain exhausted", lastErr)
}
