package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixlet/pkg/errors"
)

func TestOutputPath(t *testing.T) {
	got := OutputPath("/data/broken.mp4", "")

	assert.Equal(t, "/data", filepath.Dir(got), "defaults to the source directory")
	base := filepath.Base(got)
	assert.True(t, strings.HasPrefix(base, "broken_fixed_"), "marker inserted, got %q", base)
	assert.True(t, strings.HasSuffix(base, ".mp4"), "extension kept, got %q", base)
	assert.NotEqual(t, "broken.mp4", base)

	// random suffix avoids collisions across runs
	assert.NotEqual(t, got, OutputPath("/data/broken.mp4", ""))

	withDir := OutputPath("/data/broken.mp4", "/out")
	assert.Equal(t, "/out", filepath.Dir(withDir))
}

func TestFetchStreamsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("repaired-bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.mp4")
	f := NewFetcher(0)

	require.NoError(t, f.Fetch(context.Background(), srv.URL, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "repaired-bytes", string(data))
}

func TestFetchNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.mp4")
	f := NewFetcher(0)

	err := f.Fetch(context.Background(), srv.URL, dest)
	require.Error(t, err)
	assert.Equal(t, errors.CodeDownloadFailed, errors.CodeOf(err))
	assert.Equal(t, http.StatusNotFound, errors.AsError(err).HTTPStatus)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "no partial file left behind")
}

func TestFetchEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.mp4")
	f := NewFetcher(0)

	err := f.Fetch(context.Background(), srv.URL, dest)
	require.Error(t, err)
	assert.Equal(t, errors.CodeDownloadFailed, errors.CodeOf(err))
}
