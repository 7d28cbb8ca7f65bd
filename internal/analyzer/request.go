package analyzer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Allowed values for the enumerated request fields.
var (
	ReasoningEfforts = []string{"low", "medium", "high"}
	DetailLevels     = []string{"auto", "low", "high"}
)

// Defaults applied to omitted request fields.
const (
	DefaultReasoningEffort = "high"
	DefaultDetail          = "auto"
)

// schemaURL is the in-memory location output schemas are compiled under.
const schemaURL = "mem://output_schema.json"

// ImagePaths is the ordered list of image references of a request.
//
// In JSON it is either a single string or an array of strings; a single string
// is the same as a one-element array.
type ImagePaths []string

// UnmarshalJSON accepts a string or an array of strings.
func (p *ImagePaths) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*p = ImagePaths{single}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("image_paths must be a string or an array of strings")
	}
	*p = list
	return nil
}

// Request holds the arguments of one analyze_images call.
type Request struct {
	Prompt     string     `json:"prompt"`
	ImagePaths ImagePaths `json:"image_paths"`

	// Model is a "provider:model-name" identifier. Empty selects the configured default.
	Model string `json:"model,omitempty"`

	// MaxTokens caps the response length when set.
	MaxTokens *int `json:"max_tokens,omitempty"`

	ReasoningEffort string `json:"reasoning_effort,omitempty"`
	Detail          string `json:"detail,omitempty"`

	// OutputSchema requests structured output validated against this JSON schema.
	OutputSchema map[string]any `json:"output_schema,omitempty"`

	// UseMistral routes the images to Mistral Document AI instead of a chat model.
	UseMistral bool `json:"use_mistral,omitempty"`
}

// withDefaults returns a copy of r with omitted fields filled in.
func (r Request) withDefaults(defaultModel string) Request {
	if strings.TrimSpace(r.Model) == "" {
		r.Model = defaultModel
	}
	if r.ReasoningEffort == "" {
		r.ReasoningEffort = DefaultReasoningEffort
	}
	if r.Detail == "" {
		r.Detail = DefaultDetail
	}
	return r
}

// Validate checks the request without touching the filesystem or network.
// It returns the compiled output schema, or nil when none was requested.
func (r Request) Validate() (*jsonschema.Schema, error) {
	if strings.TrimSpace(r.Prompt) == "" {
		return nil, validationErrorf("Prompt cannot be empty. Please provide a question or instruction for analyzing the image(s).")
	}
	if len(r.ImagePaths) == 0 {
		return nil, validationErrorf("At least one image path is required. Provide local file paths or URLs.")
	}
	for i, p := range r.ImagePaths {
		if strings.TrimSpace(p) == "" {
			return nil, validationErrorf("image_paths[%d] must not be empty", i)
		}
	}
	if r.ReasoningEffort != "" && !oneOf(r.ReasoningEffort, ReasoningEfforts) {
		return nil, validationErrorf("invalid reasoning_effort %q: must be one of %s", r.ReasoningEffort, strings.Join(ReasoningEfforts, ", "))
	}
	if r.Detail != "" && !oneOf(r.Detail, DetailLevels) {
		return nil, validationErrorf("invalid detail %q: must be one of %s", r.Detail, strings.Join(DetailLevels, ", "))
	}
	if r.MaxTokens != nil && *r.MaxTokens <= 0 {
		return nil, validationErrorf("max_tokens must be a positive integer, got %d", *r.MaxTokens)
	}
	if r.OutputSchema != nil && r.UseMistral {
		return nil, validationErrorf("output_schema cannot be used with use_mistral: Mistral Document AI returns extracted text only")
	}
	if r.OutputSchema == nil {
		return nil, nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, r.OutputSchema); err != nil {
		return nil, validationErrorf("invalid output_schema: %v", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, validationErrorf("invalid output_schema: %v", err)
	}
	return schema, nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
