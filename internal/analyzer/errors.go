package analyzer

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"

	"github.com/ironsheep/image-analyzer-mcp/internal/config"
	"github.com/ironsheep/image-analyzer-mcp/internal/imaging"
	"github.com/ironsheep/image-analyzer-mcp/internal/provider"
)

// Category classifies a failed analysis.
type Category string

const (
	// CategoryConfiguration: credentials for the selected provider are missing.
	CategoryConfiguration Category = "configuration"

	// CategoryValidation: the request is malformed.
	CategoryValidation Category = "validation"

	// CategoryResolution: an image reference does not point at an existing file.
	CategoryResolution Category = "resolution"

	// CategoryFormat: a file is not a supported image, an SVG could not be
	// converted, or an image URL is not reachable.
	CategoryFormat Category = "format"

	// CategoryRemote: the model call failed or returned unusable output.
	CategoryRemote Category = "remote"
)

// ErrorType returns the error_type tag reported to clients.
func (c Category) ErrorType() string {
	switch c {
	case CategoryConfiguration:
		return "ConfigurationError"
	case CategoryValidation:
		return "ValidationError"
	case CategoryResolution:
		return "ResolutionError"
	case CategoryFormat:
		return "FormatError"
	case CategoryRemote:
		return "RemoteError"
	}
	return "Error"
}

// Error is a classified analysis failure.
//
// Err carries a stack trace recorded where the failure was classified;
// format it with %+v to print the trace.
type Error struct {
	Category Category
	Err      error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Format prints the wrapped error; %+v includes the stack trace.
func (e *Error) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%s: %+v", e.Category.ErrorType(), e.Err)
		return
	}
	fmt.Fprint(s, e.Error())
}

func validationErrorf(format string, args ...any) *Error {
	return &Error{Category: CategoryValidation, Err: errors.Errorf(format, args...)}
}

func validationError(err error) *Error {
	return &Error{Category: CategoryValidation, Err: errors.WithStack(err)}
}

func remoteErrorf(format string, args ...any) *Error {
	return &Error{Category: CategoryRemote, Err: errors.Errorf(format, args...)}
}

// classify wraps err in an *Error, choosing the category from the error chain.
// An *Error is returned unchanged.
func classify(err error) *Error {
	var aerr *Error
	if stderrors.As(err, &aerr) {
		return aerr
	}

	var (
		resolveErr *imaging.ResolveError
		formatErr  *imaging.FormatError
		urlErr     *imaging.URLError
		remoteErr  *provider.RemoteError
	)

	category := CategoryRemote
	switch {
	case stderrors.Is(err, config.ErrNotConfigured):
		category = CategoryConfiguration
	case stderrors.Is(err, provider.ErrInvalidModel):
		category = CategoryValidation
	case stderrors.As(err, &resolveErr):
		category = CategoryResolution
	case stderrors.As(err, &formatErr), stderrors.As(err, &urlErr):
		category = CategoryFormat
	case stderrors.As(err, &remoteErr):
		category = CategoryRemote
	case stderrors.Is(err, context.DeadlineExceeded):
		err = fmt.Errorf("request timed out: %w", err)
	case stderrors.Is(err, context.Canceled):
		err = fmt.Errorf("request canceled: %w", err)
	}

	return &Error{Category: category, Err: errors.WithStack(err)}
}
