// Package server implements the MCP (Model Context Protocol) server for image analysis.
//
// The protocol layer (JSON-RPC 2.0 framing, the initialize handshake, tools/list,
// ping) is provided by github.com/mark3labs/mcp-go. This package defines the one
// tool the server offers and adapts tool calls to the analyzer package.
//
// # Protocol
//
// The server communicates over stdio:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Logs go to stderr so they never interleave with protocol messages.
//
// # Tool
//
// analyze_images takes a prompt and one or more images (paths or URLs) and returns
// the model's answer:
//
//	{"prompt": "What breed is this dog?", "image_paths": "~/photos/dog.jpg"}
//
// Optional arguments select the model ("provider:model-name"), cap the answer
// length (max_tokens), tune reasoning_effort and image detail, request
// structured output (output_schema), or route the images to Mistral Document AI
// (use_mistral).
//
// # Error Handling
//
// Analysis failures are not JSON-RPC errors. They are returned as a normal tool
// result with isError set, whose text is a JSON object:
//
//	{"error": "...", "error_type": "ResolutionError", "debug_mode": false}
//
// With MCP_DEBUG enabled the object also carries a "traceback".
//
// # Usage
//
//	srv, err := server.New(cfg, version, logger)
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx, os.Stdin, os.Stdout)
package server
