package analyzer

import (
	"github.com/ironsheep/image-analyzer-mcp/internal/provider"
)

// Result is the outcome of one analysis: a *TextResult, *StructuredResult or *ErrorResult.
type Result interface {
	isResult()
}

// TextResult is a free-form answer.
type TextResult struct {
	Analysis string
	Model    string

	// Usage is nil when the provider reported no token counts.
	Usage *provider.Usage
}

// StructuredResult is an answer that matched the requested output schema.
type StructuredResult struct {
	Data  map[string]any
	Model string
	Usage *provider.Usage
}

// ErrorResult is a failed analysis.
type ErrorResult struct {
	Message  string
	Category Category

	// Debug reports whether the server runs in debug mode.
	Debug bool

	// Trace is the failure with its stack trace. Set only in debug mode.
	Trace string
}

func (*TextResult) isResult()       {}
func (*StructuredResult) isResult() {}
func (*ErrorResult) isResult()      {}

// Shape renders a result as the mapping returned to the client.
func Shape(r Result) map[string]any {
	switch r := r.(type) {
	case *TextResult:
		out := map[string]any{"analysis": r.Analysis, "model": r.Model}
		if r.Usage != nil {
			out["usage"] = r.Usage
		}
		return out
	case *StructuredResult:
		out := map[string]any{"data": r.Data, "model": r.Model}
		if r.Usage != nil {
			out["usage"] = r.Usage
		}
		return out
	case *ErrorResult:
		out := map[string]any{
			"error":      r.Message,
			"error_type": r.Category.ErrorType(),
			"debug_mode": r.Debug,
		}
		if r.Debug && r.Trace != "" {
			out["traceback"] = r.Trace
		}
		return out
	}
	panic("analyzer: unknown result type")
}
