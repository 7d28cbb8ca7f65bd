package imaging

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// webpPixel is a 1x1 lossless WebP image.
var webpPixel = []byte{
	0x52, 0x49, 0x46, 0x46, 0x1a, 0x00, 0x00, 0x00, 0x57, 0x45, 0x42, 0x50,
	0x56, 0x50, 0x38, 0x4c, 0x0d, 0x00, 0x00, 0x00, 0x2f, 0x00, 0x00, 0x00,
	0x10, 0x07, 0x10, 0x11, 0x11, 0x88, 0x88, 0xfe, 0x07, 0x00,
}

// testImage returns a small solid-colour image.
func testImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// writeImage encodes img with enc into dir/name and returns the path.
func writeImage(t *testing.T, dir, name string, enc func(*bytes.Buffer, image.Image) error) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, enc(&buf, testImage(8, 6, color.RGBA{255, 0, 0, 255})))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func encodePNG(b *bytes.Buffer, img image.Image) error  { return png.Encode(b, img) }
func encodeJPEG(b *bytes.Buffer, img image.Image) error { return jpeg.Encode(b, img, nil) }
func encodeGIF(b *bytes.Buffer, img image.Image) error  { return gif.Encode(b, img, nil) }
func encodeBMP(b *bytes.Buffer, img image.Image) error  { return imaging.Encode(b, img, imaging.BMP) }

func newTestPreparer(checker URLChecker) *Preparer {
	return NewPreparer(checker, zerolog.Nop())
}

func TestPrepare_LocalFormats(t *testing.T) {
	dir := t.TempDir()
	webpPath := filepath.Join(dir, "pixel.webp")
	require.NoError(t, os.WriteFile(webpPath, webpPixel, 0o644))

	tests := []struct {
		name      string
		path      string
		mediaType string
	}{
		{"png", writeImage(t, dir, "a.png", encodePNG), "image/png"},
		{"jpeg", writeImage(t, dir, "b.jpg", encodeJPEG), "image/jpeg"},
		{"gif", writeImage(t, dir, "c.gif", encodeGIF), "image/gif"},
		{"webp", webpPath, "image/webp"},
		// The media type follows the content, not the extension.
		{"png named jpg", writeImage(t, dir, "d.jpg", encodePNG), "image/png"},
	}

	p := newTestPreparer(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := os.ReadFile(tt.path)
			require.NoError(t, err)

			c, err := p.Prepare(context.Background(), Location{Reference: tt.name, Path: tt.path})
			require.NoError(t, err)
			assert.False(t, c.IsRemote())
			assert.Equal(t, tt.mediaType, c.MediaType)
			assert.Equal(t, want, c.Data)
			assert.Equal(t, tt.name, c.Reference)
		})
	}
}

func TestPrepare_NotAnImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fake.jpg")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a jpeg"), 0o644))

	_, err := newTestPreparer(nil).Prepare(context.Background(), Location{Path: path})
	require.Error(t, err)

	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
	for _, format := range []string{"JPEG", "PNG", "GIF", "WebP"} {
		assert.Contains(t, err.Error(), format)
	}
}

func TestPrepare_UnsupportedFormat(t *testing.T) {
	path := writeImage(t, t.TempDir(), "old.bmp", encodeBMP)

	_, err := newTestPreparer(nil).Prepare(context.Background(), Location{Path: path})
	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, err.Error(), `"bmp"`)
}

func TestPrepare_TruncatedImage(t *testing.T) {
	dir := t.TempDir()
	full := writeImage(t, dir, "full.png", encodePNG)
	data, err := os.ReadFile(full)
	require.NoError(t, err)
	path := filepath.Join(dir, "cut.png")
	require.NoError(t, os.WriteFile(path, data[:len(data)/2], 0o644))

	_, err = newTestPreparer(nil).Prepare(context.Background(), Location{Path: path})
	var ferr *FormatError
	assert.ErrorAs(t, err, &ferr)
}

func TestPrepare_Directory(t *testing.T) {
	_, err := newTestPreparer(nil).Prepare(context.Background(), Location{Path: t.TempDir()})
	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, err.Error(), "not a file")
}

func TestPrepare_SVG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Diagram.SVG")
	require.NoError(t, os.WriteFile(path, []byte(testSVG), 0o644))

	c, err := newTestPreparer(nil).Prepare(context.Background(), Location{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "image/png", c.MediaType)

	img, format, err := image.Decode(bytes.NewReader(c.Data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 150, img.Bounds().Dx())
	assert.Equal(t, 75, img.Bounds().Dy())
}

func TestPrepare_MalformedSVG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.svg")
	require.NoError(t, os.WriteFile(path, []byte(`<svg viewBox="0 0 10 10"><rect`), 0o644))

	_, err := newTestPreparer(nil).Prepare(context.Background(), Location{Path: path})
	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, err.Error(), "SVG")
}

type fakeChecker struct {
	calls atomic.Int32
	err   error
}

func (f *fakeChecker) Check(ctx context.Context, url string) error {
	f.calls.Add(1)
	return f.err
}

func TestPrepare_URL(t *testing.T) {
	checker := &fakeChecker{}
	loc := Location{Reference: "https://example.com/a.png", URL: "https://example.com/a.png"}

	c, err := newTestPreparer(checker).Prepare(context.Background(), loc)
	require.NoError(t, err)
	assert.True(t, c.IsRemote())
	assert.Equal(t, loc.URL, c.URL)
	assert.Nil(t, c.Data)
	assert.Equal(t, int32(1), checker.calls.Load())
}

func TestPrepare_URLCheckFails(t *testing.T) {
	checker := &fakeChecker{err: &URLError{URL: "https://example.com/x", Status: 404}}

	_, err := newTestPreparer(checker).Prepare(context.Background(), Location{URL: "https://example.com/x"})
	var uerr *URLError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, 404, uerr.Status)
}

func TestPrepare_URLWithoutChecker(t *testing.T) {
	c, err := newTestPreparer(nil).Prepare(context.Background(), Location{URL: "https://example.com/x.png"})
	require.NoError(t, err)
	assert.True(t, c.IsRemote())
}

func TestPrepareAll_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeImage(t, dir, "a.png", encodePNG)
	b := writeImage(t, dir, "b.jpg", encodeJPEG)

	locs := []Location{
		{Reference: "a", Path: a},
		{Reference: "b", Path: b},
		{Reference: "a-again", Path: a},
		{Reference: "remote", URL: "https://example.com/c.png"},
	}

	out, err := newTestPreparer(nil).PrepareAll(context.Background(), locs)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, "a", out[0].Reference)
	assert.Equal(t, "image/png", out[0].MediaType)
	assert.Equal(t, "b", out[1].Reference)
	assert.Equal(t, "image/jpeg", out[1].MediaType)
	assert.Equal(t, out[0].Data, out[2].Data)
	assert.True(t, out[3].IsRemote())
}

func TestPrepareAll_FirstErrorReturned(t *testing.T) {
	dir := t.TempDir()
	good := writeImage(t, dir, "a.png", encodePNG)
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0o644))

	_, err := newTestPreparer(nil).PrepareAll(context.Background(), []Location{{Path: good}, {Path: bad}})
	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, bad, ferr.Path)
}

func TestPrepare_CanceledContext(t *testing.T) {
	path := writeImage(t, t.TempDir(), "a.png", encodePNG)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPreparer(nil).Prepare(ctx, Location{Path: path})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestContent_DataURL(t *testing.T) {
	c := Content{Data: []byte{1, 2, 3}, MediaType: "image/png"}
	assert.Equal(t, "data:image/png;base64,AQID", c.DataURL())
	assert.Equal(t, "AQID", c.Base64())

	remote := Content{URL: "https://example.com/x.png"}
	assert.Equal(t, "https://example.com/x.png", remote.DataURL())
}
