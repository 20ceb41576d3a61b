package credential

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/recreate-skps/internal/config"
	ferrors "git.home.luguber.info/inful/recreate-skps/internal/foundation/errors"
	"git.home.luguber.info/inful/recreate-skps/internal/logfields"
	"git.home.luguber.info/inful/recreate-skps/internal/retry"
)

// MetadataFlavorHeader must accompany every metadata service request.
const (
	MetadataFlavorHeader = "Metadata-Flavor"
	MetadataFlavorValue  = "Google"
)

// Fetcher retrieves the credential body.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// MetadataFetcher reads a project attribute from the metadata service.
// Unreachable service and 5xx answers are retried with Retry.
type MetadataFetcher struct {
	URL    string
	Client *http.Client
	Retry  retry.Policy
}

// NewMetadataFetcher returns a fetcher for url with a 30s request timeout and
// three retries.
func NewMetadataFetcher(url string) *MetadataFetcher {
	return &MetadataFetcher{
		URL:    url,
		Client: &http.Client{Timeout: 30 * time.Second},
		Retry:  retry.NewPolicy(config.RetryBackoffExponential, time.Second, 10*time.Second, 3),
	}
}

func (m *MetadataFetcher) Fetch(ctx context.Context) ([]byte, error) {
	var body []byte
	err := m.Retry.Do(ctx, func(ctx context.Context) error {
		b, err := m.fetchOnce(ctx)
		body = b
		return err
	}, retry.OnRetry(func(n int, err error) {
		slog.Warn("Retrying metadata request", logfields.URL(m.URL), slog.Int("attempt", n), logfields.Error(err))
	}))
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (m *MetadataFetcher) fetchOnce(ctx context.Context) ([]byte, error) {
	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.URL, http.NoBody)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryCredential, "invalid metadata request").
			WithContext("url", m.URL).Build()
	}
	req.Header.Set(MetadataFlavorHeader, MetadataFlavorValue)

	resp, err := client.Do(req)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "metadata request failed").
			WithContext("url", m.URL).Retryable().Build()
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to read metadata response").
			WithContext("url", m.URL).Retryable().Build()
	}
	if resp.StatusCode >= 500 {
		return nil, ferrors.NetworkError(fmt.Sprintf("metadata service returned %s", resp.Status)).
			WithContext("url", m.URL).
			WithContext("status", resp.StatusCode).
			Build()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ferrors.CredentialError(fmt.Sprintf("metadata service returned %s", resp.Status)).
			WithContext("url", m.URL).
			WithContext("status", resp.StatusCode).
			Build()
	}
	return body, nil
}

// GitCookies is the scoped gitcookies file used by the upload step.
type GitCookies struct {
	Path    string
	Fetcher Fetcher
}

// New returns a scoped credential written to path.
func New(path string, f Fetcher) *GitCookies {
	return &GitCookies{Path: path, Fetcher: f}
}

// With fetches the credential to g.Path, runs use with that path, and removes
// the file afterwards on every exit path, panics included. A release failure
// is returned; if use also failed both errors are joined, use first.
func (g *GitCookies) With(ctx context.Context, use func(path string) error) (err error) {
	defer func() {
		if rerr := g.release(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()

	if err := g.acquire(ctx); err != nil {
		return err
	}
	return use(g.Path)
}

func (g *GitCookies) acquire(ctx context.Context) error {
	slog.Info("Downloading gitcookies", logfields.Path(g.Path))
	body, err := g.Fetcher.Fetch(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(g.Path), 0o700); err != nil {
		return ferrors.FileSystemError("failed to create credential directory").WithCause(err).Build()
	}
	if err := os.WriteFile(g.Path, body, 0o600); err != nil {
		return ferrors.FileSystemError("failed to write credential file").
			WithCause(err).
			WithContext("path", g.Path).
			Build()
	}
	return nil
}

func (g *GitCookies) release() error {
	if _, err := os.Stat(g.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return ferrors.FileSystemError("failed to stat credential file").WithCause(err).WithContext("path", g.Path).Build()
	}
	if err := os.Remove(g.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ferrors.FileSystemError("failed to remove credential file").
			WithCause(err).
			WithContext("path", g.Path).
			Build()
	}
	slog.Info("Removed gitcookies", logfields.Path(g.Path))
	return nil
}

// Skip hands out Path without fetching or writing a credential. Dry runs use it.
type Skip struct{ Path string }

func (s Skip) With(_ context.Context, use func(path string) error) error {
	slog.Info("Dry run: skipping gitcookies download", logfields.Path(s.Path))
	return use(s.Path)
}
