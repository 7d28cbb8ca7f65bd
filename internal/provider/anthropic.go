package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/rs/zerolog"

	"github.com/ironsheep/image-analyzer-mcp/internal/config"
	"github.com/ironsheep/image-analyzer-mcp/internal/transport"
)

const (
	defaultAnthropicURL = "https://api.anthropic.com"
	anthropicVersion    = "2023-06-01"

	// The Messages API requires max_tokens on every request.
	defaultAnthropicMaxTokens = 4096

	// resultTool is the tool the model is forced to call for structured output.
	resultTool = "emit_result"
)

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicContentBlock struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`

	// Set on tool_use blocks in responses.
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicImageSource struct {
	// base64 | url
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type anthropicRequest struct {
	Model      string               `json:"model"`
	MaxTokens  int                  `json:"max_tokens"`
	Messages   []anthropicMessage   `json:"messages"`
	Tools      []anthropicTool      `json:"tools,omitempty"`
	ToolChoice *anthropicToolChoice `json:"tool_choice,omitempty"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
	Usage   *struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// anthropicClient calls the Anthropic Messages API.
type anthropicClient struct {
	pipeline runtime.Pipeline
	endpoint string
	model    Model
	logger   zerolog.Logger
}

func newAnthropicClient(cfg config.Provider, model Model, transporter policy.Transporter, logger zerolog.Logger) *anthropicClient {
	base := cfg.BaseURL
	if base == "" {
		base = defaultAnthropicURL
	}
	return &anthropicClient{
		pipeline: transport.NewPipeline(transporter, &transport.HeaderPolicy{Headers: map[string]string{
			"x-api-key":         cfg.APIKey,
			"anthropic-version": anthropicVersion,
		}}),
		endpoint: strings.TrimRight(base, "/") + "/v1/messages",
		model:    model,
		logger:   logger,
	}
}

// Complete sends the images followed by the prompt as one user turn.
// With a schema, the model is forced to answer through a tool call whose input is the result.
func (c *anthropicClient) Complete(ctx context.Context, req Request) (*Response, error) {
	body := c.buildRequest(req)

	httpReq, err := runtime.NewRequest(ctx, http.MethodPost, c.endpoint)
	if err != nil {
		return nil, &RemoteError{Provider: "Anthropic", Message: err.Error(), Err: err}
	}
	if err := runtime.MarshalAsJSON(httpReq, body); err != nil {
		return nil, &RemoteError{Provider: "Anthropic", Message: err.Error(), Err: err}
	}

	c.logger.Debug().Int("images", len(req.Images)).Int("max_tokens", body.MaxTokens).Msg("sending messages request")

	resp, err := c.pipeline.Do(httpReq)
	if err != nil {
		return nil, &RemoteError{Provider: "Anthropic", Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if !runtime.HasStatusCode(resp, http.StatusOK) {
		return nil, &RemoteError{Provider: "Anthropic", StatusCode: resp.StatusCode, Message: anthropicErrorMessage(resp)}
	}

	var out anthropicResponse
	if err := runtime.UnmarshalAsJSON(resp, &out); err != nil {
		return nil, &RemoteError{Provider: "Anthropic", Message: "failed to decode response: " + err.Error(), Err: err}
	}

	result := &Response{}
	if out.Usage != nil {
		result.Usage = &Usage{
			PromptTokens:     out.Usage.InputTokens,
			CompletionTokens: out.Usage.OutputTokens,
			TotalTokens:      out.Usage.InputTokens + out.Usage.OutputTokens,
		}
	}

	if req.Schema != nil {
		for _, block := range out.Content {
			if block.Type == "tool_use" && block.Name == resultTool {
				result.Text = string(block.Input)
				return result, nil
			}
		}
		return nil, &RemoteError{Provider: "Anthropic", Message: "model did not return structured output"}
	}

	var text []string
	for _, block := range out.Content {
		if block.Type == "text" && block.Text != "" {
			text = append(text, block.Text)
		}
	}
	result.Text = strings.Join(text, "\n")
	return result, nil
}

func (c *anthropicClient) buildRequest(req Request) anthropicRequest {
	content := make([]anthropicContentBlock, 0, len(req.Images)+1)
	for _, img := range req.Images {
		src := &anthropicImageSource{Type: "url", URL: img.URL}
		if !img.IsRemote() {
			src = &anthropicImageSource{Type: "base64", MediaType: img.MediaType, Data: img.Base64()}
		}
		content = append(content, anthropicContentBlock{Type: "image", Source: src})
	}
	content = append(content, anthropicContentBlock{Type: "text", Text: req.Prompt})

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	body := anthropicRequest{
		Model:     c.model.Name,
		MaxTokens: maxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: content}},
	}

	if req.Schema != nil {
		body.Tools = []anthropicTool{{
			Name:        resultTool,
			Description: "Record the analysis result in the requested structure.",
			InputSchema: req.Schema,
		}}
		body.ToolChoice = &anthropicToolChoice{Type: "tool", Name: resultTool}
	}

	if req.ReasoningEffort != "" {
		c.logger.Debug().Str("reasoning_effort", req.ReasoningEffort).Msg("Anthropic does not take reasoning_effort, ignoring")
	}

	return body
}

func anthropicErrorMessage(resp *http.Response) string {
	data, err := io.ReadAll(resp.Body)
	if err != nil || len(data) == 0 {
		return http.StatusText(resp.StatusCode)
	}
	var body anthropicErrorBody
	if json.Unmarshal(data, &body) == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return strings.TrimSpace(string(data))
}
