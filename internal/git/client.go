package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	appcfg "git.home.luguber.info/inful/recreate-skps/internal/config"
	"git.home.luguber.info/inful/recreate-skps/internal/logfields"
	"git.home.luguber.info/inful/recreate-skps/internal/retry"
)

// Client handles checkouts below a single root directory.
type Client struct {
	root        string
	depth       int
	incremental bool
	policy      retry.Policy
	progress    io.Writer
}

// Option configures a Client.
type Option func(*Client)

// WithDepth sets the shallow clone depth; 0 fetches full history.
func WithDepth(depth int) Option { return func(c *Client) { c.depth = depth } }

// WithIncremental makes existing checkouts update in place instead of being recloned.
func WithIncremental(on bool) Option { return func(c *Client) { c.incremental = on } }

// WithRetryPolicy sets the policy used for transient failures.
func WithRetryPolicy(p retry.Policy) Option { return func(c *Client) { c.policy = p } }

// WithProgress streams go-git progress output to w.
func WithProgress(w io.Writer) Option { return func(c *Client) { c.progress = w } }

// NewClient creates a client checking out into root.
func NewClient(root string, opts ...Option) *Client {
	c := &Client{root: root, policy: retry.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FromConfig builds a client from the checkout section.
func FromConfig(cfg *appcfg.Config, progress io.Writer) *Client {
	return NewClient(cfg.Paths.WorkDir,
		WithDepth(cfg.Checkout.Depth),
		WithIncremental(cfg.Checkout.Incremental),
		WithRetryPolicy(retry.FromConfig(cfg.Checkout.Retry)),
		WithProgress(progress),
	)
}

// Checkout clones repo, or updates it when incremental mode is on and a
// checkout already exists. Transient failures are retried with the client's policy.
func (c *Client) Checkout(ctx context.Context, repo appcfg.Repository) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	op := "clone"
	fn := func() (string, error) { return c.cloneOnce(ctx, repo) }
	if c.incremental && c.hasCheckout(repo) {
		op = "update"
		fn = func() (string, error) { return c.updateOnce(ctx, repo) }
	}

	var path string
	err := c.policy.Do(ctx,
		func(context.Context) error {
			p, err := fn()
			path = p
			return err
		},
		retry.StopOn(IsPermanentGitError),
		retry.OnRetry(func(n int, err error) {
			slog.Warn("Retrying git operation",
				slog.String("operation", op),
				logfields.Name(repo.Name),
				slog.Int("attempt", n),
				logfields.Error(err))
		}),
	)
	if err != nil {
		return "", fmt.Errorf("git %s %s: %w", op, repo.Name, err)
	}
	return path, nil
}

func (c *Client) repoPath(repo appcfg.Repository) string {
	return filepath.Join(c.root, repo.Name)
}

func (c *Client) hasCheckout(repo appcfg.Repository) bool {
	_, err := os.Stat(filepath.Join(c.repoPath(repo), ".git"))
	return err == nil
}

func (c *Client) cloneOnce(ctx context.Context, repo appcfg.Repository) (string, error) {
	repoPath := c.repoPath(repo)
	slog.Debug("Cloning repository", logfields.URL(repo.URL), logfields.Name(repo.Name), slog.String("branch", repo.Branch), logfields.Path(repoPath))
	if err := os.RemoveAll(repoPath); err != nil {
		return "", fmt.Errorf("failed to remove existing directory: %w", err)
	}

	opts := &git.CloneOptions{URL: repo.URL, Progress: c.progress, Tags: git.NoTags}
	if repo.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(repo.Branch)
		opts.SingleBranch = true
	}
	if c.depth > 0 {
		opts.Depth = c.depth
	}
	auth, err := authMethod(repo.Auth)
	if err != nil {
		return "", &AuthError{Op: "clone", URL: repo.URL, Err: err}
	}
	opts.Auth = auth

	repository, err := git.PlainCloneContext(ctx, repoPath, false, opts)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", classifyError("clone", repo.URL, err)
	}
	logCheckout(repository, repo, "Repository cloned")
	return repoPath, nil
}

func logCheckout(repository *git.Repository, repo appcfg.Repository, msg string) {
	if ref, err := repository.Head(); err == nil {
		slog.Info(msg, logfields.Name(repo.Name), logfields.URL(repo.URL), slog.String("commit", shortHash(ref.Hash())))
		return
	}
	slog.Info(msg, logfields.Name(repo.Name), logfields.URL(repo.URL))
}

func shortHash(h plumbing.Hash) string {
	s := h.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Head returns the HEAD commit of the checkout at path.
func Head(path string) (string, error) {
	repository, err := git.PlainOpen(path)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", &NotFoundError{Op: "open", URL: path, Err: err}
		}
		return "", err
	}
	ref, err := repository.Head()
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}

// DryRun logs the checkouts a run would perform.
type DryRun struct{ Root string }

func (d DryRun) Checkout(_ context.Context, repo appcfg.Repository) (string, error) {
	path := filepath.Join(d.Root, repo.Name)
	slog.Info("Dry run: would check out repository",
		logfields.Name(repo.Name),
		logfields.URL(repo.URL),
		logfields.Path(path))
	return path, nil
}
