package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ironsheep/image-analyzer-mcp/internal/analyzer"
)

// handleAnalyzeImages runs one analyze_images call.
//
// The shaped result is returned as a single text block holding indented JSON:
//
//	{
//	  "analysis": "...",
//	  "model": "azure:gpt-5.2",
//	  "usage": {"prompt_tokens": 812, "completion_tokens": 95, "total_tokens": 907}
//	}
//
// Failures are reported in the same way with IsError set; the handler never
// returns a protocol-level error.
func (s *Server) handleAnalyzeImages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decodeArguments(request.GetArguments())
	var result analyzer.Result
	if err != nil {
		result = s.analyzer.Reject(err)
	} else {
		result = s.analyzer.Analyze(ctx, req)
	}

	return toolResult(result), nil
}

// decodeArguments converts the tool arguments into an analyzer.Request.
func decodeArguments(args map[string]any) (analyzer.Request, error) {
	var req analyzer.Request

	data, err := json.Marshal(args)
	if err != nil {
		return req, fmt.Errorf("invalid arguments: %w", err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("invalid arguments: %w", err)
	}
	return req, nil
}

func toolResult(result analyzer.Result) *mcp.CallToolResult {
	text, err := json.MarshalIndent(analyzer.Shape(result), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}

	out := mcp.NewToolResultText(string(text))
	if _, failed := result.(*analyzer.ErrorResult); failed {
		out.IsError = true
	}
	return out
}
