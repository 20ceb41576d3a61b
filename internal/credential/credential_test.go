package credential

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/recreate-skps/internal/config"
	ferrors "git.home.luguber.info/inful/recreate-skps/internal/foundation/errors"
	"git.home.luguber.info/inful/recreate-skps/internal/retry"
)

const cookieBody = ".googlesource.com\tTRUE\t/\tTRUE\t2147483647\to\tgit-bot=1//secret\n"

func metadataServer(t *testing.T, status int) (*httptest.Server, *http.Request) {
	t.Helper()
	var seen http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = *r
		w.WriteHeader(status)
		_, _ = w.Write([]byte(cookieBody))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestMetadataFetcher(t *testing.T) {
	srv, seen := metadataServer(t, http.StatusOK)
	f := NewMetadataFetcher(srv.URL + "/computeMetadata/v1/project/attributes/update_skps_git_cookies")

	body, err := f.Fetch(t.Context())
	require.NoError(t, err)
	assert.Equal(t, cookieBody, string(body))
	assert.Equal(t, "Google", seen.Header.Get("Metadata-Flavor"))
	assert.Equal(t, "/computeMetadata/v1/project/attributes/update_skps_git_cookies", seen.URL.Path)
	assert.Equal(t, http.MethodGet, seen.Method)
}

func TestMetadataFetcherNon2xx(t *testing.T) {
	srv, _ := metadataServer(t, http.StatusNotFound)
	_, err := NewMetadataFetcher(srv.URL).Fetch(t.Context())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryCredential))
}

func fastFetcher(url string) *MetadataFetcher {
	f := NewMetadataFetcher(url)
	f.Retry = retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 2)
	return f
}

func TestMetadataFetcherUnreachable(t *testing.T) {
	srv, _ := metadataServer(t, http.StatusOK)
	url := srv.URL
	srv.Close()
	_, err := fastFetcher(url).Fetch(t.Context())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNetwork))
}

func TestMetadataFetcherRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(cookieBody))
	}))
	t.Cleanup(srv.Close)

	body, err := fastFetcher(srv.URL).Fetch(t.Context())
	require.NoError(t, err)
	assert.Equal(t, cookieBody, string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestMetadataFetcherDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	_, err := fastFetcher(srv.URL).Fetch(t.Context())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryCredential))
	assert.Equal(t, int32(1), calls.Load())
}

func TestWithSuccess(t *testing.T) {
	srv, _ := metadataServer(t, http.StatusOK)
	path := filepath.Join(t.TempDir(), "update_skps.git_cookies")
	g := New(path, NewMetadataFetcher(srv.URL))

	var usedPath string
	err := g.With(t.Context(), func(p string) error {
		usedPath = p
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, cookieBody, string(data))
		fi, err := os.Stat(p)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, path, usedPath)
	assert.NoFileExists(t, path)
}

func TestWithUseFailureStillReleases(t *testing.T) {
	srv, _ := metadataServer(t, http.StatusOK)
	path := filepath.Join(t.TempDir(), "update_skps.git_cookies")
	useErr := errors.New("upload exited 1")

	err := New(path, NewMetadataFetcher(srv.URL)).With(t.Context(), func(string) error { return useErr })
	require.ErrorIs(t, err, useErr)
	assert.NoFileExists(t, path)
}

func TestWithPanicStillReleases(t *testing.T) {
	srv, _ := metadataServer(t, http.StatusOK)
	path := filepath.Join(t.TempDir(), "update_skps.git_cookies")

	assert.Panics(t, func() {
		_ = New(path, NewMetadataFetcher(srv.URL)).With(t.Context(), func(string) error { panic("boom") })
	})
	assert.NoFileExists(t, path)
}

func TestWithAcquireFailureSkipsUse(t *testing.T) {
	srv, _ := metadataServer(t, http.StatusForbidden)
	path := filepath.Join(t.TempDir(), "update_skps.git_cookies")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))

	called := false
	err := New(path, NewMetadataFetcher(srv.URL)).With(t.Context(), func(string) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called, "use must not run when acquisition fails")
	assert.NoFileExists(t, path, "release runs even when acquisition fails")
}

type staticFetcher []byte

func (s staticFetcher) Fetch(context.Context) ([]byte, error) { return s, nil }

func TestWithReleaseFailureJoinsErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "update_skps.git_cookies")
	useErr := errors.New("upload failed")

	err := New(path, staticFetcher("c")).With(t.Context(), func(p string) error {
		// Replace the file with a non-empty directory so removal fails.
		require.NoError(t, os.Remove(p))
		require.NoError(t, os.MkdirAll(filepath.Join(p, "child"), 0o700))
		return useErr
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, useErr)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
}

func TestSkipWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update_skps.git_cookies")
	var got string
	err := Skip{Path: path}.With(t.Context(), func(p string) error {
		got = p
		_, statErr := os.Stat(p)
		assert.True(t, errors.Is(statErr, os.ErrNotExist))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, path, got)
}
