package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp" // Register WebP format decoder
	"golang.org/x/sync/errgroup"
)

// SupportedFormats names the raster formats accepted for local files.
const SupportedFormats = "JPEG, PNG, GIF, WebP"

// mediaTypes maps decoder format names to MIME types.
var mediaTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// Content is an image ready to hand to a model.
//
// Local and converted images carry Data and MediaType. Remote images carry only URL.
type Content struct {
	// Reference is the caller's original string.
	Reference string

	Data      []byte
	MediaType string

	URL string
}

// IsRemote reports whether the content is a URL reference.
func (c Content) IsRemote() bool {
	return c.URL != ""
}

// Base64 returns the standard base64 encoding of Data.
func (c Content) Base64() string {
	return base64.StdEncoding.EncodeToString(c.Data)
}

// DataURL returns the content as a data URL, or the remote URL unchanged.
func (c Content) DataURL() string {
	if c.IsRemote() {
		return c.URL
	}
	return fmt.Sprintf("data:%s;base64,%s", c.MediaType, c.Base64())
}

// FormatError reports a local file that is not a usable image.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("Invalid image file at %s. Supported formats: %s, SVG. Error: %v", e.Path, SupportedFormats, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Preparer validates resolved locations and produces Content.
type Preparer struct {
	checker URLChecker
	logger  zerolog.Logger
}

// NewPreparer creates a preparer. A nil checker skips URL reachability checks.
func NewPreparer(checker URLChecker, logger zerolog.Logger) *Preparer {
	return &Preparer{checker: checker, logger: logger}
}

// Prepare validates a location and returns its content.
//
// URLs are checked for reachability and returned as references without being
// downloaded. SVG files are rasterized to PNG. Other files must decode as one of
// SupportedFormats.
func (p *Preparer) Prepare(ctx context.Context, loc Location) (Content, error) {
	if loc.IsURL() {
		if p.checker != nil {
			if err := p.checker.Check(ctx, loc.URL); err != nil {
				return Content{}, err
			}
		}
		p.logger.Info().Str("url", loc.URL).Msg("using image URL")
		return Content{Reference: loc.Reference, URL: loc.URL}, nil
	}

	if err := ctx.Err(); err != nil {
		return Content{}, err
	}

	info, err := os.Stat(loc.Path)
	if err != nil {
		return Content{}, &FormatError{Path: loc.Path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return Content{}, &FormatError{Path: loc.Path, Err: fmt.Errorf("path is not a file")}
	}

	data, err := os.ReadFile(loc.Path)
	if err != nil {
		return Content{}, &FormatError{Path: loc.Path, Err: fmt.Errorf("failed to read image: %w", err)}
	}

	if strings.EqualFold(filepath.Ext(loc.Path), ".svg") {
		png, err := RasterizeSVG(bytes.NewReader(data))
		if err != nil {
			return Content{}, &FormatError{Path: loc.Path, Err: fmt.Errorf("failed to convert SVG to PNG: %w", err)}
		}
		p.logger.Info().Str("path", loc.Path).Int("svg_bytes", len(data)).Int("png_bytes", len(png)).Msg("converted SVG to PNG")
		return Content{Reference: loc.Reference, Data: png, MediaType: "image/png"}, nil
	}

	mediaType, err := DetectMediaType(data)
	if err != nil {
		return Content{}, &FormatError{Path: loc.Path, Err: err}
	}

	p.logger.Info().Str("path", loc.Path).Msg("using local image")
	p.logger.Debug().Str("path", loc.Path).Str("media_type", mediaType).Int("bytes", len(data)).Msg("image loaded")
	return Content{Reference: loc.Reference, Data: data, MediaType: mediaType}, nil
}

// PrepareAll prepares every location concurrently. The result preserves input order.
// The first failure cancels the remaining work and is returned.
func (p *Preparer) PrepareAll(ctx context.Context, locs []Location) ([]Content, error) {
	out := make([]Content, len(locs))
	g, ctx := errgroup.WithContext(ctx)
	for i, loc := range locs {
		g.Go(func() error {
			c, err := p.Prepare(ctx, loc)
			if err != nil {
				return err
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DetectMediaType decodes data and returns its MIME type.
// It fails unless data is a complete JPEG, PNG, GIF or WebP image.
func DetectMediaType(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to read image header: %w", err)
	}

	mediaType, ok := mediaTypes[format]
	if !ok {
		return "", fmt.Errorf("unsupported image format %q", format)
	}

	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}
	return mediaType, nil
}
