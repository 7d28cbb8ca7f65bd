package provider

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ironsheep/image-analyzer-mcp/internal/config"
	"github.com/ironsheep/image-analyzer-mcp/internal/imaging"
)

// Request is a provider-neutral analysis request.
type Request struct {
	Prompt string

	// Images are sent after the prompt, in order.
	Images []imaging.Content

	// MaxTokens caps the response length. Zero leaves the provider default.
	MaxTokens int

	// ReasoningEffort is "low", "medium" or "high". Models that do not take
	// the hint ignore it.
	ReasoningEffort string

	// Detail is the OpenAI image detail level: "auto", "low" or "high".
	Detail string

	// Schema requests structured output matching this JSON schema.
	Schema map[string]any
}

// Usage holds token counters reported by the provider.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Response is a provider-neutral analysis result.
type Response struct {
	// Text is the model's answer, or the raw JSON document when a schema was set.
	Text string

	// Usage is nil when the provider does not report token counts.
	Usage *Usage
}

// Client submits analysis requests to one model.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// RemoteError reports a failed call to a hosted model.
type RemoteError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	status := ""
	if e.StatusCode != 0 {
		status = fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	return fmt.Sprintf("%s request failed%s: %s. If the problem persists, try a different model provider (e.g., 'azure:gpt-5.2', 'openai:gpt-4o', 'anthropic:claude-sonnet-4').",
		e.Provider, status, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewClient returns the client for model, checking that its credentials are configured.
func NewClient(cfg config.Config, model Model, logger zerolog.Logger) (Client, error) {
	logger = logger.With().Str("model", model.String()).Logger()

	switch model.Provider {
	case Azure:
		if err := cfg.RequireAzure(); err != nil {
			return nil, err
		}
		return newAzureClient(cfg.Azure, model, logger)
	case OpenAI:
		if err := cfg.RequireOpenAI(); err != nil {
			return nil, err
		}
		return newOpenAIClient(cfg.OpenAI, model, logger), nil
	case Anthropic:
		if err := cfg.RequireAnthropic(); err != nil {
			return nil, err
		}
		return newAnthropicClient(cfg.Anthropic, model, nil, logger), nil
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrInvalidModel, model.Provider)
	}
}
