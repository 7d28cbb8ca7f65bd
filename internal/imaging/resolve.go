package imaging

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Location is the resolved form of an image reference.
//
// Exactly one of Path and URL is set. Reference keeps the caller's original string
// for messages and labels.
type Location struct {
	Reference string
	Path      string
	URL       string
}

// IsURL reports whether the location is a remote URL.
func (l Location) IsURL() bool {
	return l.URL != ""
}

// String returns the path or URL.
func (l Location) String() string {
	if l.IsURL() {
		return l.URL
	}
	return l.Path
}

// ResolveError reports an image reference that matched no existing file.
type ResolveError struct {
	// Reference is the path as supplied by the caller.
	Reference string

	// Tried lists every absolute path checked, in order.
	Tried []string

	// Err is the error from the last existence check, if any.
	Err error
}

func (e *ResolveError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("Cannot resolve image path: %s: %v", e.Reference, e.Err)
	}
	return fmt.Sprintf("Image not found at path: %s. Tried: %s. Please check that the file exists and the path is correct.",
		e.Reference, strings.Join(e.Tried, " and "))
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// IsURL reports whether ref is an http or https URL.
func IsURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Resolver maps image references to locations.
type Resolver struct {
	// BaseDir anchors relative paths. It should be absolute.
	BaseDir string

	stat func(string) (fs.FileInfo, error)
	home func() (string, error)
}

// NewResolver creates a resolver anchored at baseDir.
func NewResolver(baseDir string) *Resolver {
	return &Resolver{BaseDir: baseDir, stat: os.Stat, home: os.UserHomeDir}
}

// Resolve returns the location for ref.
//
// URLs are returned unchanged without touching the filesystem. A leading "~" is
// expanded to the user's home directory. Absolute paths get exactly one existence
// check. Relative paths try BaseDir/ref, then BaseDir with the first component of
// ref stripped. Existence checks follow symlinks, and the returned path is the
// symlink target.
func (r *Resolver) Resolve(ctx context.Context, ref string) (Location, error) {
	if IsURL(ref) {
		return Location{Reference: ref, URL: ref}, nil
	}

	p, err := r.expandHome(ref)
	if err != nil {
		return Location{}, &ResolveError{Reference: ref, Err: err}
	}

	if filepath.IsAbs(p) {
		p = filepath.Clean(p)
		if err := r.exists(p); err != nil {
			return Location{}, &ResolveError{Reference: ref, Tried: []string{p}, Err: err}
		}
		return Location{Reference: ref, Path: realPath(p)}, nil
	}

	first := filepath.Join(r.BaseDir, p)
	err = r.exists(first)
	if err == nil {
		return Location{Reference: ref, Path: realPath(first)}, nil
	}
	tried := []string{first}

	rest, ok := stripFirst(p)
	if !ok {
		return Location{}, &ResolveError{Reference: ref, Tried: tried, Err: err}
	}
	if cerr := ctx.Err(); cerr != nil {
		return Location{}, cerr
	}

	second := filepath.Join(r.BaseDir, rest)
	err = r.exists(second)
	if err == nil {
		return Location{Reference: ref, Path: realPath(second)}, nil
	}
	tried = append(tried, second)

	return Location{}, &ResolveError{Reference: ref, Tried: tried, Err: err}
}

func (r *Resolver) exists(p string) error {
	stat := r.stat
	if stat == nil {
		stat = os.Stat
	}
	_, err := stat(p)
	return err
}

// stripFirst drops the first component of a relative path.
// It returns false for single component paths.
func stripFirst(p string) (string, bool) {
	parts := strings.SplitN(filepath.ToSlash(filepath.Clean(p)), "/", 2)
	if len(parts) < 2 || parts[1] == "" {
		return "", false
	}
	return filepath.FromSlash(parts[1]), true
}

func (r *Resolver) expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, `~\`) {
		return p, nil
	}
	userHome := r.home
	if userHome == nil {
		userHome = os.UserHomeDir
	}
	home, err := userHome()
	if err != nil {
		return "", fmt.Errorf("failed to expand home directory: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// realPath resolves symlinks, falling back to p when resolution fails.
func realPath(p string) string {
	if real, err := filepath.EvalSymlinks(p); err == nil {
		return real
	}
	return p
}
