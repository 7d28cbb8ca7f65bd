// Package provider talks to hosted vision models.
//
// A model is selected by an identifier of the form "provider:model-name". ParseModel
// turns the identifier into a Model value and NewClient is the single place where a
// Model is mapped to a concrete client:
//
//   - azure: Azure OpenAI chat completions (model name is the deployment)
//   - openai: OpenAI chat completions
//   - anthropic: Anthropic Messages API
//
// Every client accepts the same Request (prompt, ordered images, optional limits and
// output schema) and returns the same Response (text plus optional token usage).
// When an output schema is supplied, Response.Text holds the JSON document produced by
// the model; validating it is left to the caller.
//
// Clients never retry. A failed or non-success call is returned as a *RemoteError.
package provider
