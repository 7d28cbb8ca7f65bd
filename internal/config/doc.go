// Package config builds the immutable server configuration.
//
// Configuration is read once at startup from the process environment, optionally
// seeded from a .env file in the working directory. The resulting Config value is
// passed explicitly to every component that needs it; nothing in the server reads
// the environment after startup.
//
// # Variables
//
//   - MODEL: default model identifier ("provider:model-name", default "azure:gpt-5.2")
//   - AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY, AZURE_OPENAI_API_VERSION
//   - AZURE_OPENAI_AUTH: "key" (default) or "entra" for DefaultAzureCredential
//   - AZURE_MISTRAL_DEPLOYMENT: document AI deployment (default "mistral-document-ai-2505")
//   - OPENAI_API_KEY, OPENAI_BASE_URL
//   - ANTHROPIC_API_KEY, ANTHROPIC_BASE_URL
//   - MCP_DEBUG: "true", "1" or "yes" enables debug logging and error traces
//   - IMAGE_BASE_DIR: directory relative image paths are resolved against
//   - REQUEST_TIMEOUT: per tool call deadline (Go duration, default 2m)
//   - VALIDATE_URLS: check remote image URLs with a HEAD request (default true)
//
// Provider credentials are optional at load time. They are checked per request,
// only for the provider that request selects.
package config
