package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/rs/zerolog"

	"github.com/ironsheep/image-analyzer-mcp/internal/config"
	"github.com/ironsheep/image-analyzer-mcp/internal/imaging"
	"github.com/ironsheep/image-analyzer-mcp/internal/provider"
	"github.com/ironsheep/image-analyzer-mcp/internal/transport"
)

const providerName = "Mistral Document AI"

// Page is the text of one document page.
type Page struct {
	// Index is the 0-based page number.
	Index int `json:"index"`

	// Markdown is the recognized page content.
	Markdown string `json:"markdown"`
}

// OCRResult contains the text extracted from one document.
type OCRResult struct {
	// FullText is the markdown of every non-empty page joined by blank lines.
	FullText string `json:"full_text"`

	// Pages holds the per-page results as returned by the service.
	Pages []Page `json:"pages"`
}

type documentInput struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
}

type ocrRequest struct {
	Model              string        `json:"model"`
	Document           documentInput `json:"document"`
	IncludeImageBase64 bool          `json:"include_image_base64"`
}

type ocrResponse struct {
	Pages []Page `json:"pages"`
}

// Client calls the Mistral OCR endpoint of an Azure AI Foundry resource.
type Client struct {
	pipeline   runtime.Pipeline
	endpoint   string
	deployment string
	logger     zerolog.Logger
}

// FoundryEndpoint derives the OCR URL from an Azure OpenAI endpoint.
func FoundryEndpoint(azureEndpoint string) string {
	foundry := strings.Replace(azureEndpoint, "cognitiveservices.azure.com", "services.ai.azure.com", 1)
	return strings.TrimRight(foundry, "/") + "/providers/mistral/azure/ocr"
}

// NewClient creates a client from the Azure settings.
//
// Parameters:
//   - cfg: Azure settings. Endpoint and APIKey must be set; MistralDeployment names
//     the model deployment.
//   - transporter: HTTP transport, or nil for the default client.
//   - logger: destination for progress and diagnostic messages.
func NewClient(cfg config.Azure, transporter policy.Transporter, logger zerolog.Logger) *Client {
	return &Client{
		pipeline:   transport.NewPipeline(transporter, &transport.BearerPolicy{Token: cfg.APIKey}),
		endpoint:   FoundryEndpoint(cfg.Endpoint),
		deployment: cfg.MistralDeployment,
		logger:     logger,
	}
}

// Model returns the identifier reported in results, "mistral:<deployment>".
func (c *Client) Model() string {
	return "mistral:" + c.deployment
}

// ExtractText performs OCR on a single document.
//
// Parameters:
//   - ctx: bounds the HTTP call.
//   - document: a remote image URL or a data URL ("data:<mime>;base64,...").
//
// Returns:
//   - *OCRResult: page markdown and the combined FullText. FullText is empty when
//     the service recognized no text.
//   - error: a *provider.RemoteError when the call fails or the service answers
//     with anything other than 200.
func (c *Client) ExtractText(ctx context.Context, document string) (*OCRResult, error) {
	req, err := runtime.NewRequest(ctx, http.MethodPost, c.endpoint)
	if err != nil {
		return nil, &provider.RemoteError{Provider: providerName, Message: err.Error(), Err: err}
	}

	body := ocrRequest{
		Model:    c.deployment,
		Document: documentInput{Type: "image_url", ImageURL: document},
	}
	if err := runtime.MarshalAsJSON(req, body); err != nil {
		return nil, &provider.RemoteError{Provider: providerName, Message: err.Error(), Err: err}
	}

	resp, err := c.pipeline.Do(req)
	if err != nil {
		return nil, &provider.RemoteError{Provider: providerName, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if !runtime.HasStatusCode(resp, http.StatusOK) {
		data, _ := io.ReadAll(resp.Body)
		return nil, &provider.RemoteError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.RemoteError{Provider: providerName, Message: err.Error(), Err: err}
	}
	var out ocrResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &provider.RemoteError{Provider: providerName, Message: "failed to decode response: " + err.Error(), Err: err}
	}

	texts := make([]string, 0, len(out.Pages))
	for _, p := range out.Pages {
		if p.Markdown != "" {
			texts = append(texts, p.Markdown)
		}
	}

	return &OCRResult{
		FullText: strings.Join(texts, "\n\n"),
		Pages:    out.Pages,
	}, nil
}

// Analyze runs OCR on each image in order and combines the results.
//
// Each image gets a section headed "=== <reference> ===". A failed image records
// "[Error: ...]" in its section; an image without text records a placeholder.
// A non-blank prompt is echoed as the first line.
func (c *Client) Analyze(ctx context.Context, prompt string, images []imaging.Content) string {
	sections := make([]string, 0, len(images))
	for _, img := range images {
		header := fmt.Sprintf("=== %s ===\n", img.Reference)

		c.logger.Info().Str("image", img.Reference).Msg("calling Mistral OCR")
		result, err := c.ExtractText(ctx, img.DataURL())
		if err != nil {
			c.logger.Error().Err(err).Str("image", img.Reference).Msg("Mistral OCR failed")
			sections = append(sections, header+"[Error: "+ocrErrorText(err)+"]")
			continue
		}

		text := result.FullText
		if text == "" {
			c.logger.Warn().Str("image", img.Reference).Msg("empty OCR result")
			text = fmt.Sprintf("[No text extracted from %s]", img.Reference)
		}
		c.logger.Info().Str("image", img.Reference).Int("chars", len(result.FullText)).Msg("OCR extracted text")
		sections = append(sections, header+text)
	}

	combined := strings.Join(sections, "\n\n")
	if strings.TrimSpace(prompt) != "" {
		return fmt.Sprintf("User request: %s\n\n%s", prompt, combined)
	}
	return combined
}

func ocrErrorText(err error) string {
	if rerr, ok := err.(*provider.RemoteError); ok {
		return rerr.Message
	}
	return err.Error()
}
