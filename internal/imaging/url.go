package imaging

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/rs/zerolog"

	"github.com/ironsheep/image-analyzer-mcp/internal/transport"
)

// DefaultURLCheckTimeout bounds a single reachability check.
const DefaultURLCheckTimeout = 10 * time.Second

// URLError reports a remote image that could not be reached.
type URLError struct {
	URL    string
	Status int
	Err    error
}

func (e *URLError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("URL returned status %d: %s. Please check that the URL is correct and accessible.", e.Status, e.URL)
	case errors.Is(e.Err, context.DeadlineExceeded):
		return fmt.Sprintf("Timeout while accessing URL: %s. Please check your network connection and try again.", e.URL)
	default:
		return fmt.Sprintf("Failed to access URL: %s. Error: %v", e.URL, e.Err)
	}
}

func (e *URLError) Unwrap() error {
	return e.Err
}

// URLChecker verifies that a remote image is reachable.
type URLChecker interface {
	Check(ctx context.Context, url string) error
}

// HeadChecker checks URLs with a HEAD request. Redirects are followed.
type HeadChecker struct {
	pipeline runtime.Pipeline
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewHeadChecker creates a checker. A nil transporter uses the default HTTP client.
func NewHeadChecker(transporter policy.Transporter, logger zerolog.Logger) *HeadChecker {
	return &HeadChecker{
		pipeline: transport.NewPipeline(transporter),
		timeout:  DefaultURLCheckTimeout,
		logger:   logger,
	}
}

// Check succeeds when the URL answers 200. A content type other than image/* is
// logged but accepted.
func (c *HeadChecker) Check(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := runtime.NewRequest(ctx, http.MethodHead, url)
	if err != nil {
		return &URLError{URL: url, Err: err}
	}

	resp, err := c.pipeline.Do(req)
	if err != nil {
		return &URLError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if !runtime.HasStatusCode(resp, http.StatusOK) {
		return &URLError{URL: url, Status: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.logger.Warn().Str("url", url).Str("content_type", contentType).Msg("URL does not appear to be an image")
	}
	c.logger.Debug().Str("url", url).Str("content_type", contentType).Msg("validated URL")
	return nil
}
