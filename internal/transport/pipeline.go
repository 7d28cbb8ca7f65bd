// Package transport builds the HTTP pipelines used for outbound calls that have no
// dedicated SDK: remote image checks, the Anthropic Messages API and the Mistral
// document AI endpoint.
//
// Pipelines come from azcore so they share request ids, logging and transport
// defaults with the Azure SDK clients. Retries are disabled; a failed call is
// reported to the caller immediately.
package transport

import (
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
)

// Module is reported in the User-Agent of every pipeline.
const Module = "image-analyzer-mcp"

// Version follows Module in the User-Agent. main sets it to the build version
// before any pipeline is created.
var Version = "dev"

// NewPipeline returns a retry-free pipeline running the given policies on every request.
// A nil transporter uses the azcore default HTTP client.
func NewPipeline(transporter policy.Transporter, policies ...policy.Policy) runtime.Pipeline {
	return runtime.NewPipeline(Module, Version, runtime.PipelineOptions{
		PerCall: policies,
	}, &policy.ClientOptions{
		Retry:     policy.RetryOptions{MaxRetries: -1},
		Transport: transporter,
	})
}

// BearerPolicy sets "Authorization: Bearer <token>" on each request.
type BearerPolicy struct {
	Token string
}

// Do authorizes a request with a bearer token
func (b *BearerPolicy) Do(req *policy.Request) (*http.Response, error) {
	if b.Token != "" {
		req.Raw().Header.Set("Authorization", fmt.Sprintf("Bearer %s", b.Token))
	}
	return req.Next()
}

// HeaderPolicy sets fixed headers on each request.
type HeaderPolicy struct {
	Headers map[string]string
}

// Do applies the configured headers.
func (h *HeaderPolicy) Do(req *policy.Request) (*http.Response, error) {
	for k, v := range h.Headers {
		req.Raw().Header.Set(k, v)
	}
	return req.Next()
}
