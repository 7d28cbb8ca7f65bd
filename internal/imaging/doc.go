// Package imaging turns caller supplied image references into model-ready content.
//
// Two steps are involved. Resolve decides what a reference points at: an http(s)
// URL is passed through untouched, a local path is checked on disk. Prepare then
// validates the target and produces Content, either raw bytes with a media type or
// a remote URL reference.
//
// # Path Resolution
//
// Relative paths are resolved against a base directory with a two-step fallback:
//
//	base/proj/img.png   (as given)
//	base/img.png        (first path component stripped)
//
// The fallback tolerates callers that prefix paths with the name of the workspace
// directory the server already runs in. Absolute paths and "~" paths get a single
// existence check. When nothing matches, the error lists every path tried.
//
// # Supported Formats
//
// Raster images must decode as JPEG, PNG, GIF or WebP. The media type comes from the
// decoded content, not the file extension. Files ending in .svg are rasterized to PNG
// at 150 DPI before use.
//
// # Thread Safety
//
// Resolver and Preparer hold no mutable state and are safe for concurrent use.
// All work is in memory; nothing is written to disk.
package imaging
