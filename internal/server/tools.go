package server

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ironsheep/image-analyzer-mcp/internal/analyzer"
)

// ToolName is the name of the single tool exposed by the server.
const ToolName = "analyze_images"

const toolDescription = `Analyze one or more images with a natural-language prompt using a hosted vision model.

Images can be absolute paths, paths starting with ~, paths relative to the server's base directory, or http(s) URLs. Supported formats: JPEG, PNG, GIF, WebP, and SVG (converted to PNG at 150 DPI).

Models are selected as "provider:model-name", for example "azure:gpt-5.2", "openai:gpt-4o" or "anthropic:claude-sonnet-4".

Set output_schema to receive structured data matching a JSON schema instead of free text. Set use_mistral to extract text with Mistral Document AI (cannot be combined with output_schema).`

// InputSchema returns the JSON schema of the analyze_images arguments.
// defaultModel is advertised as the default of the model argument.
func InputSchema(defaultModel string) *jsonschema.Schema {
	str := func(description string) *jsonschema.Schema {
		return &jsonschema.Schema{Type: "string", Description: description}
	}

	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"prompt": {
				Type:        "string",
				Description: "The question or instruction for analyzing the image(s)",
				MinLength:   ptr(1),
			},
			"image_paths": {
				Description: "Single image path or URL, or an ordered list of them. Images are presented to the model in this order.",
				OneOf: []*jsonschema.Schema{
					{Type: "string", MinLength: ptr(1)},
					{Type: "array", Items: &jsonschema.Schema{Type: "string", MinLength: ptr(1)}, MinItems: ptr(1)},
				},
			},
			"model": {
				Type:        "string",
				Description: `Model identifier in "provider:model-name" form (providers: azure, openai, anthropic)`,
				Default:     mustRaw(defaultModel),
			},
			"max_tokens": {
				Type:        "integer",
				Description: "Maximum number of tokens to generate. Sent as max_completion_tokens to GPT-5 models.",
				Minimum:     ptr(1.0),
			},
			"reasoning_effort": enumSchema(
				str("How much deliberation a reasoning model performs before answering. Ignored by models without reasoning controls."),
				analyzer.ReasoningEfforts, analyzer.DefaultReasoningEffort),
			"detail": enumSchema(
				str("Image detail level for OpenAI and Azure OpenAI models. Ignored by other providers."),
				analyzer.DetailLevels, analyzer.DefaultDetail),
			"output_schema": {
				Type:        "object",
				Description: "JSON schema describing the structured data to extract. The result is returned under \"data\" instead of \"analysis\".",
			},
			"use_mistral": {
				Type:        "boolean",
				Description: "Extract text with Mistral Document AI on Azure AI Foundry instead of a chat model",
				Default:     mustRaw(false),
			},
		},
		Required: []string{"prompt", "image_paths"},
	}
}

// AnalyzeImagesTool returns the MCP tool definition for analyze_images.
func AnalyzeImagesTool(defaultModel string) (mcp.Tool, error) {
	raw, err := json.Marshal(InputSchema(defaultModel))
	if err != nil {
		return mcp.Tool{}, fmt.Errorf("failed to marshal input schema: %w", err)
	}

	tool := mcp.NewToolWithRawSchema(ToolName, toolDescription, raw)
	tool.Annotations = mcp.ToolAnnotation{
		Title:           "Analyze images",
		ReadOnlyHint:    mcp.ToBoolPtr(true),
		DestructiveHint: mcp.ToBoolPtr(false),
		IdempotentHint:  mcp.ToBoolPtr(false),
		OpenWorldHint:   mcp.ToBoolPtr(true),
	}
	return tool, nil
}

func enumSchema(s *jsonschema.Schema, values []string, def string) *jsonschema.Schema {
	s.Enum = make([]any, len(values))
	for i, v := range values {
		s.Enum[i] = v
	}
	s.Default = mustRaw(def)
	return s
}

func mustRaw(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func ptr[T any](v T) *T {
	return &v
}
