package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Provider identifies a model vendor.
type Provider string

const (
	Azure     Provider = "azure"
	OpenAI    Provider = "openai"
	Anthropic Provider = "anthropic"
)

// ErrInvalidModel is returned for malformed model identifiers.
var ErrInvalidModel = errors.New("invalid model identifier")

// Model is a parsed "provider:model-name" identifier.
type Model struct {
	Provider Provider
	Name     string
}

// String renders the identifier in "provider:model-name" form.
func (m Model) String() string {
	return string(m.Provider) + ":" + m.Name
}

// ParseModel parses a model identifier.
//
// An identifier without a provider prefix names an Azure OpenAI deployment.
func ParseModel(s string) (Model, error) {
	s = strings.TrimSpace(s)
	prefix, name, found := strings.Cut(s, ":")
	if !found {
		prefix, name = string(Azure), s
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return Model{}, fmt.Errorf("%w %q: model name is empty", ErrInvalidModel, s)
	}

	p := Provider(strings.ToLower(strings.TrimSpace(prefix)))
	switch p {
	case Azure, OpenAI, Anthropic:
		return Model{Provider: p, Name: name}, nil
	default:
		return Model{}, fmt.Errorf("%w %q: unsupported provider %q (supported: azure, openai, anthropic)", ErrInvalidModel, s, prefix)
	}
}

// IsGPT5 reports whether name belongs to the GPT-5 family, which takes
// max_completion_tokens instead of max_tokens.
func IsGPT5(name string) bool {
	return strings.Contains(strings.ToLower(name), "gpt-5")
}

// supportsReasoningEffort reports whether an OpenAI model accepts reasoning_effort.
func supportsReasoningEffort(name string) bool {
	n := strings.ToLower(name)
	if IsGPT5(n) {
		return true
	}
	for _, prefix := range []string{"o1", "o3", "o4"} {
		if strings.HasPrefix(n, prefix) {
			return true
		}
	}
	return false
}
