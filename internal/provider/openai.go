package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/azure"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rs/zerolog"

	"github.com/ironsheep/image-analyzer-mcp/internal/config"
)

// schemaName labels structured output requests.
const schemaName = "analysis_result"

// openAIClient calls the chat completions API of OpenAI or Azure OpenAI.
type openAIClient struct {
	client   openai.Client
	model    Model
	provider string
	logger   zerolog.Logger
}

func newOpenAIClient(cfg config.Provider, model Model, logger zerolog.Logger) *openAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openAIClient{
		client:   openai.NewClient(opts...),
		model:    model,
		provider: "OpenAI",
		logger:   logger,
	}
}

func newAzureClient(cfg config.Azure, model Model, logger zerolog.Logger) (*openAIClient, error) {
	opts := []option.RequestOption{
		azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
		option.WithMaxRetries(0),
	}

	switch cfg.Auth {
	case config.AzureAuthEntra:
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create Azure credential: %v", config.ErrNotConfigured, err)
		}
		opts = append(opts, azure.WithTokenCredential(cred))
	default:
		opts = append(opts, azure.WithAPIKey(cfg.APIKey))
	}

	return &openAIClient{
		client:   openai.NewClient(opts...),
		model:    model,
		provider: "Azure OpenAI",
		logger:   logger,
	}, nil
}

// Complete sends one user message: the prompt followed by every image.
func (c *openAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	params := c.buildParams(req)

	c.logger.Debug().Int("images", len(req.Images)).Str("reasoning_effort", req.ReasoningEffort).Msg("sending chat completion")

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, c.remoteError(err)
	}
	if len(completion.Choices) == 0 {
		return nil, &RemoteError{Provider: c.provider, Message: "response contained no choices"}
	}

	resp := &Response{Text: completion.Choices[0].Message.Content}
	if u := completion.Usage; u.PromptTokens != 0 || u.CompletionTokens != 0 || u.TotalTokens != 0 {
		resp.Usage = &Usage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	return resp, nil
}

func (c *openAIClient) buildParams(req Request) openai.ChatCompletionNewParams {
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(req.Images)+1)
	parts = append(parts, openai.TextContentPart(req.Prompt))
	for _, img := range req.Images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    img.DataURL(),
			Detail: req.Detail,
		}))
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model.Name),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: parts,
					},
				},
			},
		},
	}

	if req.MaxTokens > 0 {
		if IsGPT5(c.model.Name) {
			params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
		} else {
			params.MaxTokens = openai.Int(int64(req.MaxTokens))
		}
	}

	if req.ReasoningEffort != "" {
		if supportsReasoningEffort(c.model.Name) {
			params.ReasoningEffort = shared.ReasoningEffort(req.ReasoningEffort)
		} else {
			c.logger.Debug().Str("reasoning_effort", req.ReasoningEffort).Msg("model does not take reasoning_effort, ignoring")
		}
	}

	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: req.Schema,
				},
			},
		}
	}

	return params
}

func (c *openAIClient) remoteError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		return &RemoteError{Provider: c.provider, StatusCode: apiErr.StatusCode, Message: msg, Err: err}
	}
	return &RemoteError{Provider: c.provider, Message: err.Error(), Err: err}
}
