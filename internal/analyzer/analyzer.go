package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ironsheep/image-analyzer-mcp/internal/config"
	"github.com/ironsheep/image-analyzer-mcp/internal/imaging"
	"github.com/ironsheep/image-analyzer-mcp/internal/ocr"
	"github.com/ironsheep/image-analyzer-mcp/internal/provider"
)

// DocumentReader extracts text from images, one service call per image.
// *ocr.Client implements it.
type DocumentReader interface {
	Analyze(ctx context.Context, prompt string, images []imaging.Content) string
	Model() string
}

// ClientFactory builds the model client for a parsed model identifier.
type ClientFactory func(cfg config.Config, model provider.Model, logger zerolog.Logger) (provider.Client, error)

// ReaderFactory builds the document reader used when use_mistral is set.
type ReaderFactory func(cfg config.Azure, logger zerolog.Logger) DocumentReader

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithClientFactory replaces the function that builds model clients.
func WithClientFactory(f ClientFactory) Option {
	return func(a *Analyzer) { a.newClient = f }
}

// WithReaderFactory replaces the function that builds the document reader.
func WithReaderFactory(f ReaderFactory) Option {
	return func(a *Analyzer) { a.newReader = f }
}

// WithURLChecker replaces the reachability check applied to image URLs.
// A nil checker disables the check.
func WithURLChecker(c imaging.URLChecker) Option {
	return func(a *Analyzer) { a.preparer = imaging.NewPreparer(c, a.logger) }
}

// Analyzer runs analyze_images requests. It holds no per-request state and is
// safe for concurrent use.
type Analyzer struct {
	cfg       config.Config
	resolver  *imaging.Resolver
	preparer  *imaging.Preparer
	newClient ClientFactory
	newReader ReaderFactory
	logger    zerolog.Logger
}

// New creates an Analyzer from the server configuration.
//
// Image URLs are checked with a HEAD request unless cfg.ValidateURLs is false.
// Relative image paths are resolved against cfg.BaseDir.
func New(cfg config.Config, logger zerolog.Logger, opts ...Option) *Analyzer {
	var checker imaging.URLChecker
	if cfg.ValidateURLs {
		checker = imaging.NewHeadChecker(nil, logger)
	}

	a := &Analyzer{
		cfg:       cfg,
		resolver:  imaging.NewResolver(cfg.BaseDir),
		preparer:  imaging.NewPreparer(checker, logger),
		newClient: provider.NewClient,
		newReader: func(cfg config.Azure, logger zerolog.Logger) DocumentReader {
			return ocr.NewClient(cfg, nil, logger)
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs one request to completion. It never returns nil and never
// panics on bad input; every failure becomes an *ErrorResult.
func (a *Analyzer) Analyze(ctx context.Context, req Request) Result {
	result, err := a.analyze(ctx, req)
	if err != nil {
		return a.errorResult(err)
	}
	return result
}

func (a *Analyzer) analyze(ctx context.Context, req Request) (Result, error) {
	req = req.withDefaults(a.cfg.DefaultModel)

	schema, err := req.Validate()
	if err != nil {
		return nil, err
	}

	if a.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.RequestTimeout)
		defer cancel()
	}

	if req.UseMistral {
		return a.analyzeDocuments(ctx, req)
	}

	model, err := provider.ParseModel(req.Model)
	if err != nil {
		return nil, err
	}
	logger := a.logger.With().Str("model", model.String()).Logger()
	logger.Info().Msgf("Using model: %s", model)

	client, err := a.newClient(a.cfg, model, logger)
	if err != nil {
		return nil, err
	}

	images, err := a.load(ctx, req.ImagePaths)
	if err != nil {
		return nil, err
	}

	preq := provider.Request{
		Prompt:          req.Prompt,
		Images:          images,
		ReasoningEffort: req.ReasoningEffort,
		Detail:          req.Detail,
		Schema:          req.OutputSchema,
	}
	if req.MaxTokens != nil {
		preq.MaxTokens = *req.MaxTokens
	}

	logger.Info().
		Int("images", len(images)).
		Str("reasoning_effort", req.ReasoningEffort).
		Bool("structured", schema != nil).
		Msg("sending request")

	resp, err := client.Complete(ctx, preq)
	if err != nil {
		return nil, err
	}
	if resp.Usage != nil {
		logger.Info().Int64("total_tokens", resp.Usage.TotalTokens).Msg("analysis complete")
	}

	if schema == nil {
		return &TextResult{Analysis: resp.Text, Model: model.String(), Usage: resp.Usage}, nil
	}

	data, err := decodeStructured(resp.Text, schema)
	if err != nil {
		return nil, err
	}
	return &StructuredResult{Data: data, Model: model.String(), Usage: resp.Usage}, nil
}

// analyzeDocuments sends each image to the document AI service. Resolution and
// preparation failures end the request; OCR failures are reported inline per image.
func (a *Analyzer) analyzeDocuments(ctx context.Context, req Request) (Result, error) {
	if err := a.cfg.RequireDocumentAI(); err != nil {
		return nil, err
	}

	images, err := a.load(ctx, req.ImagePaths)
	if err != nil {
		return nil, err
	}

	reader := a.newReader(a.cfg.Azure, a.logger)
	a.logger.Info().Msgf("Using Mistral Document AI: %s", reader.Model())

	text := reader.Analyze(ctx, req.Prompt, images)
	return &TextResult{Analysis: text, Model: reader.Model()}, nil
}

// load resolves every reference in order and prepares the results concurrently.
func (a *Analyzer) load(ctx context.Context, refs []string) ([]imaging.Content, error) {
	a.logger.Info().Msgf("Preparing %d image(s) for analysis", len(refs))

	locations := make([]imaging.Location, 0, len(refs))
	for _, ref := range refs {
		loc, err := a.resolver.Resolve(ctx, strings.TrimSpace(ref))
		if err != nil {
			return nil, err
		}
		a.logger.Debug().Str("reference", ref).Str("location", loc.String()).Msg("resolved image")
		locations = append(locations, loc)
	}

	return a.preparer.PrepareAll(ctx, locations)
}

func decodeStructured(text string, schema *jsonschema.Schema) (map[string]any, error) {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil, remoteErrorf("model returned invalid JSON for output_schema: %v", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, remoteErrorf("model output did not match output_schema: %v", err)
	}
	data, ok := value.(map[string]any)
	if !ok {
		return nil, remoteErrorf("model output is not a JSON object")
	}
	return data, nil
}

// Reject reports arguments that could not be decoded into a Request as a
// validation error, with the same logging and debug details as Analyze.
func (a *Analyzer) Reject(err error) *ErrorResult {
	return a.errorResult(validationError(err))
}

func (a *Analyzer) errorResult(err error) *ErrorResult {
	aerr := classify(err)

	event := a.logger.Error().Str("error_type", aerr.Category.ErrorType())
	if a.cfg.Debug {
		event = event.Str("trace", fmt.Sprintf("%+v", aerr))
	}
	event.Msg(aerr.Error())

	result := &ErrorResult{
		Message:  aerr.Error(),
		Category: aerr.Category,
		Debug:    a.cfg.Debug,
	}
	if a.cfg.Debug {
		result.Trace = fmt.Sprintf("%+v", aerr)
	}
	return result
}
