// Package analyzer turns an analyze_images call into a model request and shapes the answer.
//
// A call flows through four steps:
//
//  1. Validate: the Request is checked before anything touches the filesystem or
//     the network (prompt, image list, enums, max_tokens, output schema, and the
//     output_schema/use_mistral exclusivity).
//  2. Resolve: every image reference is resolved against the configured base
//     directory by imaging.Resolver.
//  3. Prepare: resolved locations are validated and loaded concurrently by
//     imaging.Preparer; order is preserved.
//  4. Invoke: the images are sent in one request to the selected provider, or
//     one by one to Mistral Document AI when use_mistral is set.
//
// The outcome is a Result with exactly three variants: TextResult,
// StructuredResult and ErrorResult. Shape renders any Result as the mapping
// returned to the MCP client:
//
//	{"analysis": "...", "model": "azure:gpt-5.2", "usage": {...}}
//	{"data": {...}, "model": "openai:gpt-4o"}
//	{"error": "...", "error_type": "ResolutionError", "debug_mode": false}
//
// Errors never escape Analyze. Each failure is classified into one Category
// (configuration, validation, resolution, format, remote). In debug mode the
// error result also carries the stack trace captured when the failure was
// classified.
package analyzer
