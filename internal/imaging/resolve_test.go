package imaging

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statRecorder wraps os.Stat and records every path checked.
type statRecorder struct {
	calls []string
}

func (s *statRecorder) stat(p string) (fs.FileInfo, error) {
	s.calls = append(s.calls, p)
	return os.Stat(p)
}

// newRecordingResolver returns a resolver over a fresh temp dir.
func newRecordingResolver(t *testing.T) (*Resolver, *statRecorder, string) {
	t.Helper()
	base, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	rec := &statRecorder{}
	return &Resolver{BaseDir: base, stat: rec.stat}, rec, base
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestResolve_URL(t *testing.T) {
	r, rec, _ := newRecordingResolver(t)

	for _, ref := range []string{"http://example.com/a.png", "https://example.com/dir/b.jpg?x=1"} {
		loc, err := r.Resolve(context.Background(), ref)
		require.NoError(t, err)
		assert.True(t, loc.IsURL())
		assert.Equal(t, ref, loc.URL)
		assert.Equal(t, ref, loc.String())
	}
	assert.Empty(t, rec.calls, "URLs must not touch the filesystem")
}

func TestResolve_Absolute(t *testing.T) {
	r, rec, base := newRecordingResolver(t)
	target := filepath.Join(base, "sub", "photo.jpg")
	touch(t, target)

	loc, err := r.Resolve(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, target, loc.Path)
	assert.Equal(t, target, loc.Reference)
	assert.Len(t, rec.calls, 1)
}

func TestResolve_AbsoluteMissingNoFallback(t *testing.T) {
	r, rec, base := newRecordingResolver(t)
	// A fallback candidate exists but must not be consulted.
	touch(t, filepath.Join(base, "photo.jpg"))
	missing := filepath.Join(base, "sub", "photo.jpg")

	_, err := r.Resolve(context.Background(), missing)
	require.Error(t, err)

	var rerr *ResolveError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, []string{missing}, rerr.Tried)
	assert.Len(t, rec.calls, 1)
}

func TestResolve_RelativeFirstCandidate(t *testing.T) {
	r, rec, base := newRecordingResolver(t)
	want := filepath.Join(base, "a", "b.jpg")
	touch(t, want)
	touch(t, filepath.Join(base, "b.jpg"))

	loc, err := r.Resolve(context.Background(), "a/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, want, loc.Path)
	assert.Equal(t, []string{want}, rec.calls, "second candidate must not be checked")
}

func TestResolve_RelativeSecondCandidate(t *testing.T) {
	r, rec, base := newRecordingResolver(t)
	want := filepath.Join(base, "b.jpg")
	touch(t, want)

	loc, err := r.Resolve(context.Background(), "a/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, want, loc.Path)
	assert.Equal(t, "a/b.jpg", loc.Reference)
	assert.Equal(t, []string{filepath.Join(base, "a", "b.jpg"), want}, rec.calls)
}

func TestResolve_RelativeNestedRemainder(t *testing.T) {
	r, _, base := newRecordingResolver(t)
	want := filepath.Join(base, "images", "pic.png")
	touch(t, want)

	loc, err := r.Resolve(context.Background(), "proj/images/pic.png")
	require.NoError(t, err)
	assert.Equal(t, want, loc.Path)
}

func TestResolve_RelativeNeitherExists(t *testing.T) {
	r, _, base := newRecordingResolver(t)

	_, err := r.Resolve(context.Background(), "proj/img.png")
	require.Error(t, err)

	first := filepath.Join(base, "proj", "img.png")
	second := filepath.Join(base, "img.png")

	var rerr *ResolveError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, []string{first, second}, rerr.Tried)
	assert.Contains(t, err.Error(), first)
	assert.Contains(t, err.Error(), second)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestResolve_SingleComponentMissing(t *testing.T) {
	r, rec, base := newRecordingResolver(t)

	_, err := r.Resolve(context.Background(), "b.jpg")
	require.Error(t, err)

	var rerr *ResolveError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, []string{filepath.Join(base, "b.jpg")}, rerr.Tried)
	assert.Len(t, rec.calls, 1)
}

func TestResolve_DotPrefixedSingleComponent(t *testing.T) {
	r, rec, _ := newRecordingResolver(t)

	_, err := r.Resolve(context.Background(), "./b.jpg")
	require.Error(t, err)
	assert.Len(t, rec.calls, 1, "./b.jpg is a bare filename")
}

func TestResolve_HomeExpansion(t *testing.T) {
	home, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	want := filepath.Join(home, "pics", "cat.png")
	touch(t, want)

	r, rec, _ := newRecordingResolver(t)
	loc, err := r.Resolve(context.Background(), "~/pics/cat.png")
	require.NoError(t, err)
	assert.Equal(t, want, loc.Path)
	assert.Equal(t, "~/pics/cat.png", loc.Reference)
	assert.Len(t, rec.calls, 1, "expanded paths are absolute")
}

func TestResolve_HomeUnavailable(t *testing.T) {
	r, rec, _ := newRecordingResolver(t)
	r.home = func() (string, error) { return "", errors.New("$HOME is not defined") }

	_, err := r.Resolve(context.Background(), "~/pics/cat.png")
	require.Error(t, err)

	var rerr *ResolveError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "~/pics/cat.png", rerr.Reference)
	assert.Empty(t, rerr.Tried)
	assert.Contains(t, err.Error(), "~/pics/cat.png")
	assert.Contains(t, err.Error(), "$HOME is not defined")
	assert.Empty(t, rec.calls)
}

func TestResolve_Symlink(t *testing.T) {
	r, _, base := newRecordingResolver(t)
	target := filepath.Join(base, "real.png")
	touch(t, target)
	link := filepath.Join(base, "link.png")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	loc, err := r.Resolve(context.Background(), "link.png")
	require.NoError(t, err)
	assert.Equal(t, target, loc.Path)
}

func TestResolve_DanglingSymlink(t *testing.T) {
	r, _, base := newRecordingResolver(t)
	link := filepath.Join(base, "dangling.png")
	if err := os.Symlink(filepath.Join(base, "gone.png"), link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, err := r.Resolve(context.Background(), "dangling.png")
	var rerr *ResolveError
	assert.ErrorAs(t, err, &rerr)
}

func TestStripFirst(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"a/b.jpg", "b.jpg", true},
		{"a/b/c.jpg", filepath.Join("b", "c.jpg"), true},
		{"b.jpg", "", false},
		{"./b.jpg", "", false},
		{"a//b.jpg", "b.jpg", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := stripFirst(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("http://x"))
	assert.True(t, IsURL("https://x"))
	assert.False(t, IsURL("ftp://x"))
	assert.False(t, IsURL("/tmp/http://x"))
	assert.False(t, IsURL("photo.jpg"))
}
